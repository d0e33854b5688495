package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/estimategenie/quote-engine/internal/db"
	"github.com/estimategenie/quote-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_quote": `INSERT INTO quotes (id, project_type, status, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"save_quote":   `UPDATE quotes SET status = $1, payload = $2, updated_at = $3 WHERE id = $4`,
	"get_quote":    `SELECT payload FROM quotes WHERE id = $1`,
	"delete_quote": `DELETE FROM quotes WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., bulk price imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS quotes (
	id           TEXT PRIMARY KEY,
	project_type TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'processing',
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS price_entries (
	key         TEXT PRIMARY KEY,
	price       DOUBLE PRECISION NOT NULL,
	unit        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_quotes_status ON quotes(status);
CREATE INDEX IF NOT EXISTS idx_quotes_project_type ON quotes(project_type);
CREATE INDEX IF NOT EXISTS idx_quotes_created_at ON quotes(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateQuote(ctx context.Context, q *model.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal quote")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO quotes (id, project_type, status, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		q.ID, q.ProjectType, string(q.Status), payload, q.CreatedAt, q.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert quote %s", q.ID)
}

func (s *PostgresStore) SaveQuote(ctx context.Context, q *model.Quote) error {
	q.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(q)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal quote")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE quotes SET status = $1, payload = $2, updated_at = $3 WHERE id = $4`,
		string(q.Status), payload, q.UpdatedAt, q.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save quote %s", q.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", q.ID)
	}
	return nil
}

func (s *PostgresStore) GetQuote(ctx context.Context, id string) (*model.Quote, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM quotes WHERE id = $1`,
		id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get quote %s", id)
	}

	var q model.Quote
	if err := json.Unmarshal(payload, &q); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal quote")
	}
	return &q, nil
}

func (s *PostgresStore) ListQuotes(ctx context.Context, filter QuoteFilter) ([]model.Quote, error) {
	query := `SELECT payload FROM quotes WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.ProjectType != "" {
		args = append(args, filter.ProjectType)
		query += ` AND project_type = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list quotes")
	}
	defer rows.Close()

	var quotes []model.Quote
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan quote")
		}
		var q model.Quote
		if err := json.Unmarshal(payload, &q); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal quote")
		}
		quotes = append(quotes, q)
	}
	return quotes, eris.Wrap(rows.Err(), "postgres: list quotes iterate")
}

func (s *PostgresStore) DeleteQuote(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM quotes WHERE id = $1`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete quote %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}
