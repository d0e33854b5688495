package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estimategenie/quote-engine/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_GetQuote_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM quotes WHERE id = \$1`).
		WithArgs("nonexistent-quote").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetQuote(context.Background(), "nonexistent-quote")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetQuote_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	q := &model.Quote{
		ID:          "q-1",
		ProjectType: "bathroom",
		Status:      model.StatusCompleted,
	}
	payload, err := json.Marshal(q)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM quotes WHERE id = \$1`).
		WithArgs("q-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := s.GetQuote(context.Background(), "q-1")
	require.NoError(t, err)
	assert.Equal(t, "q-1", got.ID)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateQuote(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO quotes`).
		WithArgs("q-2", "kitchen", "processing", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	now := time.Now().UTC()
	err := s.CreateQuote(context.Background(), &model.Quote{
		ID:          "q-2",
		ProjectType: "kitchen",
		Status:      model.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveQuote_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE quotes SET status`).
		WithArgs("completed", pgxmock.AnyArg(), pgxmock.AnyArg(), "q-missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SaveQuote(context.Background(), &model.Quote{
		ID:     "q-missing",
		Status: model.StatusCompleted,
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteQuote(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM quotes WHERE id = \$1`).
		WithArgs("q-3").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteQuote(context.Background(), "q-3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListQuotes_StatusFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	payload, err := json.Marshal(&model.Quote{ID: "q-4", Status: model.StatusVisionError})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM quotes WHERE 1=1 AND status = \$1`).
		WithArgs("vision_error", 100).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	quotes, err := s.ListQuotes(context.Background(), QuoteFilter{Status: model.StatusVisionError})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "q-4", quotes[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
