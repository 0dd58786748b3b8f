package postgres

import (
	"context"

	"github.com/jonasinn/fitextractor/internal/storage"
	pgddl "github.com/jonasinn/fitextractor/internal/storage/postgres/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to the concrete
// *postgres.Repository while providing a Close method that calls the close
// function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect is the Postgres SQL spelling (native profile).
var Dialect = storage.Dialect{
	Name:     "postgres",
	Profile:  storage.ProfileNative,
	MaxIdent: pgddl.MaxIdent,
	Quote:    pgddl.QuoteIdent,
	Types:    pgddl.MapType,
	Param:    pgddl.Param,
}

// init registers the "postgres" backend and its dialect.
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:      cfg.DSN,
			MaxConns: int32(cfg.MaxConns),
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDialect("postgres", Dialect)
}
