package mysql

import (
	"context"

	"github.com/jonasinn/fitextractor/internal/storage"
	myddl "github.com/jonasinn/fitextractor/internal/storage/mysql/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

// Dialect is the MySQL SQL spelling (fallback profile).
var Dialect = storage.Dialect{
	Name:     "mysql",
	Profile:  storage.ProfileFallback,
	MaxIdent: myddl.MaxIdent,
	Quote:    myddl.QuoteIdent,
	Types:    myddl.MapType,
}

// init registers the "mysql" backend with the factory.
func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDialect("mysql", Dialect)
}

// wrappedRepo adapts *mysql.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() { w.closeFn() }
