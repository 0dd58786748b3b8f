// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and modernc.org/sqlite. Inserts are multi-row INSERT
// statements inside one transaction per CopyFrom.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonasinn/fitextractor/internal/storage"
)

// maxParams is SQLite's classic SQLITE_MAX_VARIABLE_NUMBER.
const maxParams = 999

const tableExistsSQL = `SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	*storage.SQLRepository
}

// Open opens the database with foreign keys enforced. SQLite allows one
// writer at a time, so the pool is limited to a single connection; sessions
// queue for it.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// New wraps an open database.
func New(db *sql.DB) *Repository {
	return &Repository{SQLRepository: &storage.SQLRepository{
		DB:        db,
		Dialect:   Dialect,
		ExistsSQL: tableExistsSQL,
		MaxParams: maxParams,
	}}
}

// NewRepository opens a SQLite database and returns a Repository plus a Close
// function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return New(db), closeFn, nil
}
