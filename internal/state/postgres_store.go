package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// singletonKey pins the table to one row. The single-active-job rule is a
// storage invariant, not an orchestrator courtesy, so the schema enforces it.
const singletonKey = "active"

// PostgresStoreConfig controls the Postgres connection pool behind the store.
type PostgresStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// PostgresStore keeps the progress record in a single-row Postgres table with
// a JSONB payload. Saves upsert, so a record survives any number of process
// teardowns between mutations.
type PostgresStore struct {
	pool  pgPool
	table string
}

// NewPostgresStore connects a pool and returns a store over cfg.Table
// (default "workflow_progress").
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("state.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresStoreWithPool(pool, cfg.Table)
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "workflow_progress"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Load reads the active record, ErrNotFound when no job is in flight.
func (s *PostgresStore) Load(ctx context.Context) (*Progress, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE key = $1`, s.table)
	var raw []byte
	if err := s.pool.QueryRow(ctx, query, singletonKey).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select progress: %w", err)
	}
	var p Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("stored progress invalid: %w", err)
	}
	return &p, nil
}

// Save validates and upserts the record.
func (s *PostgresStore) Save(ctx context.Context, p *Progress) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid progress: %w", err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (key, job_id, payload, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (key) DO UPDATE SET
	job_id = EXCLUDED.job_id,
	payload = EXCLUDED.payload,
	updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, singletonKey, p.JobID, raw); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Clear deletes the record; clearing an empty table is not an error.
func (s *PostgresStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, singletonKey); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
