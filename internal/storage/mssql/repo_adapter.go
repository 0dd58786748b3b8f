package mssql

import (
	"context"

	"github.com/jonasinn/fitextractor/internal/storage"
	msddl "github.com/jonasinn/fitextractor/internal/storage/mssql/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

// Dialect is the SQL Server spelling (fallback profile).
var Dialect = storage.Dialect{
	Name:     "mssql",
	Profile:  storage.ProfileFallback,
	MaxIdent: msddl.MaxIdent,
	Quote:    msddl.QuoteIdent,
	Types:    msddl.MapType,
	Param:    msddl.Param,
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDialect("mssql", Dialect)
}

// wrappedRepo adapts *mssql.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() { w.closeFn() }
