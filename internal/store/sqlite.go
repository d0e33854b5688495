package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/estimategenie/quote-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS quotes (
	id           TEXT PRIMARY KEY,
	project_type TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'processing',
	payload      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_quotes_status ON quotes(status);
CREATE INDEX IF NOT EXISTS idx_quotes_project_type ON quotes(project_type);
CREATE INDEX IF NOT EXISTS idx_quotes_created_at ON quotes(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateQuote(ctx context.Context, q *model.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal quote")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quotes (id, project_type, status, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.ProjectType, string(q.Status), string(payload), q.CreatedAt, q.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert quote %s", q.ID)
}

func (s *SQLiteStore) SaveQuote(ctx context.Context, q *model.Quote) error {
	q.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(q)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal quote")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE quotes SET status = ?, payload = ?, updated_at = ? WHERE id = ?`,
		string(q.Status), string(payload), q.UpdatedAt, q.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save quote %s", q.ID)
	}
	return checkRowsAffected(res, q.ID)
}

func (s *SQLiteStore) GetQuote(ctx context.Context, id string) (*model.Quote, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM quotes WHERE id = ?`,
		id,
	)
	return scanQuote(row)
}

func (s *SQLiteStore) ListQuotes(ctx context.Context, filter QuoteFilter) ([]model.Quote, error) {
	query := `SELECT payload FROM quotes WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ProjectType != "" {
		query += ` AND project_type = ?`
		args = append(args, filter.ProjectType)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list quotes")
	}
	defer rows.Close()

	var quotes []model.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, eris.Wrap(rows.Err(), "sqlite: list quotes iterate")
}

func (s *SQLiteStore) DeleteQuote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM quotes WHERE id = ?`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete quote %s", id)
	}
	return checkRowsAffected(res, id)
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanQuote(row scannable) (*model.Quote, error) {
	var payload string

	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan quote")
	}

	var q model.Quote
	if err := json.Unmarshal([]byte(payload), &q); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal quote")
	}
	return &q, nil
}
