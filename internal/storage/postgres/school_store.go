// Package postgres stores crawled school records in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benangmerah/sekolah/internal/crawler"
)

const defaultTable = "schools"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for school rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// SchoolStore writes one row per school and crawl run.
type SchoolStore struct {
	pool  execCloser
	table string
}

// NewSchoolStore connects a pool using cfg.
func NewSchoolStore(ctx context.Context, cfg Config) (*SchoolStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewSchoolStoreWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewSchoolStoreWithPool constructs a store from an existing pool.
func NewSchoolStoreWithPool(pool execCloser, table string) (*SchoolStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SchoolStore{pool: pool, table: table}, nil
}

// EnsureSchema creates the table when it does not exist.
func (s *SchoolStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id      TEXT        NOT NULL,
	npsn        TEXT        NOT NULL,
	fields      JSONB       NOT NULL,
	latitude    TEXT,
	longitude   TEXT,
	place_uri   TEXT,
	source_url  TEXT,
	fetched_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, npsn)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// StoreSchool inserts record for runID. A repeated NPSN within a run is ignored.
func (s *SchoolStore) StoreSchool(ctx context.Context, runID string, record crawler.SchoolRecord) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	if record.NPSN == "" {
		return fmt.Errorf("school npsn is required")
	}
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	npsn,
	fields,
	latitude,
	longitude,
	place_uri,
	source_url,
	fetched_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (run_id, npsn) DO NOTHING`, s.table)

	args := []any{
		runID,
		record.NPSN,
		fields,
		record.Coordinates.Latitude,
		record.Coordinates.Longitude,
		record.PlaceURI,
		record.SourceURL,
		record.FetchedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert school %s: %w", record.NPSN, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *SchoolStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
