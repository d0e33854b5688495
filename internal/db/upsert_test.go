package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "price_entries",
		Columns:      []string{"key", "price"},
		ConflictKeys: []string{"key"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "price_entries",
		ConflictKeys: []string{"key"},
	}, [][]any{{"tile", 3.5}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "price_entries",
		Columns: []string{"key", "price"},
	}, [][]any{{"tile", 3.5}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Flow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_staging_price_entries"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_price_entries"}, []string{"key", "price"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "price_entries" \("key", "price"\) SELECT "key", "price" FROM "_staging_price_entries" ON CONFLICT \("key"\) DO UPDATE SET "price" = EXCLUDED."price"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "price_entries",
		Columns:      []string{"key", "price"},
		ConflictKeys: []string{"key"},
	}, [][]any{{"tile", 3.5}, {"drywall", 12.5}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateColumnsDefaultsToNonKeys(t *testing.T) {
	cfg := UpsertConfig{
		Columns:      []string{"key", "price", "unit", "updated_at"},
		ConflictKeys: []string{"key"},
	}
	assert.Equal(t, []string{"price", "unit", "updated_at"}, cfg.updateColumns())

	cfg.UpdateCols = []string{"price"}
	assert.Equal(t, []string{"price"}, cfg.updateColumns())
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"simple"`, sanitizeTable("simple"))
	assert.Equal(t, `"pricing"."price_entries"`, sanitizeTable("pricing.price_entries"))
}

func TestIdentsAndAssignExcluded(t *testing.T) {
	assert.Equal(t, `"key", "price"`, idents([]string{"key", "price"}))
	assert.Equal(t, `"price" = EXCLUDED."price", "unit" = EXCLUDED."unit"`,
		assignExcluded([]string{"price", "unit"}))
}
