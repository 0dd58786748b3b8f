// Package postgres implements a Postgres repository using pgx v5. Bulk
// inserts use the COPY protocol on a connection reserved from the pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonasinn/fitextractor/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN      string // connection string for pgxpool
	MaxConns int32  // pool size; 0 keeps the pgxpool default
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

const tableExistsSQL = `SELECT 1 FROM information_schema.tables
WHERE table_schema = current_schema() AND table_name = $1`

// NewRepository constructs a Repository and returns a Close function for
// cleanup. The pool is pinged so a bad DSN fails here rather than mid-run.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pgxpool: ping: %w", err)
	}

	closeFn := func() { pool.Close() }
	return &Repository{pool: pool}, closeFn, nil
}

// Exec executes a statement on the pool.
func (r *Repository) Exec(ctx context.Context, sql string, args ...any) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("postgres: exec: %w", pgError(err))
	}
	return nil
}

// TableExists checks information_schema in the current schema.
func (r *Repository) TableExists(ctx context.Context, name string) (bool, error) {
	rows, err := r.pool.Query(ctx, tableExistsSQL, name)
	if err != nil {
		return false, fmt.Errorf("postgres: table exists %s: %w", name, pgError(err))
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// Strings returns the first column of query as strings.
func (r *Repository) Strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", pgError(err))
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", pgError(err))
	}
	return out, nil
}

// Acquire reserves a pooled connection.
func (r *Repository) Acquire(ctx context.Context) (storage.Session, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: acquire: %w", err)
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *pgxpool.Conn
}

func (s *session) Release() { s.conn.Release() }

func (s *session) Exists(ctx context.Context, query string, args ...any) (bool, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("postgres: exists: %w", pgError(err))
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// CopyFrom streams rows with COPY. A single COPY is atomic.
func (s *session) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := s.conn.CopyFrom(ctx, pgx.Identifier(strings.Split(table, ".")), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("postgres: copy into %s: %w", table, pgError(err))
	}
	return n, nil
}

// pgError folds the server detail and SQLSTATE into the message while keeping
// the original error in the chain.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s (%s): %w", pgErr.Detail, pgErr.SQLState(), err)
	}
	return err
}
