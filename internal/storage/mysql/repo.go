// Package mysql implements a MySQL-backed storage.Repository on
// go-sql-driver/mysql. Inserts are multi-row INSERT statements inside one
// transaction per CopyFrom.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/jonasinn/fitextractor/internal/storage"
)

// maxParams is the prepared-statement placeholder limit of the protocol.
const maxParams = 65535

const tableExistsSQL = `SELECT 1 FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_name = ?`

// Config holds MySQL repository configuration.
type Config struct {
	DSN      string
	MaxConns int
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	*storage.SQLRepository
}

// normalizeDSN parses dsn and forces the options the pipeline relies on:
// DATETIME values scan into time.Time in UTC.
func normalizeDSN(dsn string) (*driver.Config, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// NewRepository constructs a Repository and returns a Close function for
// cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dcfg, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	conn, err := driver.NewConnector(dcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}

	r := &Repository{SQLRepository: &storage.SQLRepository{
		DB:        db,
		Dialect:   Dialect,
		ExistsSQL: tableExistsSQL,
		MaxParams: maxParams,
	}}
	closeFn := func() { _ = db.Close() }
	return r, closeFn, nil
}
