// Package postgres persists the search log and reads document pipeline counters.
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/analytics"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/searchlog"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// Store implements the search log and document statistics on Postgres.
type Store struct {
	pool Pool
}

// New opens a pool and verifies connectivity.
func New(ctx context.Context, dsn string, poolCfg PoolConfig) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	if poolCfg.MaxConns > 0 {
		cfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		cfg.MinConns = poolCfg.MinConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool Pool) *Store {
	return &Store{pool: pool}
}

const migration = `
CREATE TABLE IF NOT EXISTS search_history (
	id               TEXT PRIMARY KEY,
	raw_query        TEXT NOT NULL,
	structured_query JSONB NOT NULL,
	results_count    INTEGER NOT NULL,
	empty_result     BOOLEAN NOT NULL DEFAULT false,
	latency_ms       BIGINT NOT NULL DEFAULT 0,
	language         TEXT NOT NULL DEFAULT '',
	degraded         BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_search_history_created_at ON search_history(created_at DESC);

CREATE TABLE IF NOT EXISTS raw_documents (
	id         BIGSERIAL PRIMARY KEY,
	source     TEXT NOT NULL,
	source_url TEXT UNIQUE,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS normalized_documents (
	id         BIGSERIAL PRIMARY KEY,
	source     TEXT NOT NULL,
	source_url TEXT UNIQUE,
	brand      TEXT
);

CREATE INDEX IF NOT EXISTS idx_raw_documents_source ON raw_documents(source);
CREATE INDEX IF NOT EXISTS idx_normalized_documents_source ON normalized_documents(source);
`

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migration)
	return eris.Wrap(err, "postgres: migrate")
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Append inserts one search log entry.
func (s *Store) Append(ctx context.Context, e searchlog.Entry) error {
	sq, err := json.Marshal(e.StructuredQuery)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal structured query")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO search_history (id, raw_query, structured_query, results_count, empty_result, latency_ms, language, degraded, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.RawQuery, sq, e.ResultCount, e.IsEmpty, e.LatencyMS, e.Language, e.Degraded, e.Timestamp.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert search %s", e.ID)
}

const selectEntries = `SELECT id, raw_query, structured_query, results_count, empty_result, latency_ms, language, degraded, created_at FROM search_history`

// Entries returns entries with Timestamp >= since in chronological order.
// A zero since returns the whole log.
func (s *Store) Entries(ctx context.Context, since time.Time) ([]searchlog.Entry, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if since.IsZero() {
		rows, err = s.pool.Query(ctx, selectEntries+` ORDER BY created_at ASC`)
	} else {
		rows, err = s.pool.Query(ctx, selectEntries+` WHERE created_at >= $1 ORDER BY created_at ASC`, since.UTC())
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query search history")
	}
	return scanEntries(rows)
}

// Recent returns the newest limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]searchlog.Entry, error) {
	rows, err := s.pool.Query(ctx, selectEntries+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query recent searches")
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]searchlog.Entry, error) {
	defer rows.Close()

	var out []searchlog.Entry
	for rows.Next() {
		var (
			e  searchlog.Entry
			sq []byte
		)
		if err := rows.Scan(&e.ID, &e.RawQuery, &sq, &e.ResultCount, &e.IsEmpty,
			&e.LatencyMS, &e.Language, &e.Degraded, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search history")
		}
		if len(sq) > 0 {
			if err := json.Unmarshal(sq, &e.StructuredQuery); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode structured query %s", e.ID)
			}
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate search history")
}

// SourceCounts returns raw and normalized document counts per source.
func (s *Store) SourceCounts(ctx context.Context) ([]analytics.SourceCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source, SUM(raw)::bigint, SUM(normalized)::bigint FROM (
			SELECT source, COUNT(*) AS raw, 0 AS normalized FROM raw_documents GROUP BY source
			UNION ALL
			SELECT source, 0 AS raw, COUNT(*) AS normalized FROM normalized_documents GROUP BY source
		) c GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query source counts")
	}
	defer rows.Close()

	var out []analytics.SourceCount
	for rows.Next() {
		var (
			sc              analytics.SourceCount
			raw, normalized int64
		)
		if err := rows.Scan(&sc.Source, &raw, &normalized); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source counts")
		}
		sc.Raw, sc.Normalized = int(raw), int(normalized)
		out = append(out, sc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate source counts")
}

// BrandDocumentCounts returns normalized documents per lower-cased brand.
func (s *Store) BrandDocumentCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT lower(brand), COUNT(*) FROM normalized_documents
		WHERE brand IS NOT NULL AND brand <> ''
		GROUP BY lower(brand)`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query brand counts")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			brand string
			n     int64
		)
		if err := rows.Scan(&brand, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan brand counts")
		}
		out[brand] = int(n)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate brand counts")
}
