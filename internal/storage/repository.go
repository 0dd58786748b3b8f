// Package storage contains the storage-agnostic contracts the ingestion
// pipeline writes through, plus the factory and dialect registries that
// backend packages populate from their init functions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name: "postgres", "sqlite", "mysql" or
	// "mssql".
	Kind string
	// DSN is passed to the backend driver.
	DSN string
	// MaxConns caps the connection pool (0 = driver default). Parallel
	// ingestion holds one connection per worker.
	MaxConns int
}

// Repository is the pool-level handle to a database.
type Repository interface {
	// Exec runs a statement outside any session (DDL, bookkeeping).
	Exec(ctx context.Context, sql string, args ...any) error
	// TableExists reports whether a table with this exact name exists in the
	// current schema/database.
	TableExists(ctx context.Context, name string) (bool, error)
	// Strings runs a query and returns its first column as strings.
	Strings(ctx context.Context, query string, args ...any) ([]string, error)
	// Acquire reserves one connection for exclusive use by the caller.
	Acquire(ctx context.Context) (Session, error)
	Close()
}

// Session is one reserved connection. It must be released exactly once.
type Session interface {
	// CopyFrom bulk-inserts rows into table. The insert is atomic: either all
	// rows land or none do.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	// Exists reports whether query returns at least one row.
	Exists(ctx context.Context, query string, args ...any) (bool, error)
	Release()
}

// ErrUnsupportedKind is returned by New and LookupDialect for unregistered
// backends.
var ErrUnsupportedKind = errors.New("storage: unsupported kind")

// Factory opens a Repository for a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnsupportedKind, cfg.Kind, ListKinds())
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered backend names, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
