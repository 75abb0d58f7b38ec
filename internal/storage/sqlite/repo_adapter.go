package sqlite

import (
	"context"

	"github.com/som4n/DataLake/internal/ddl"
	"github.com/som4n/DataLake/internal/storage"
)

// wrappedRepo adds Close, calling the cleanup function returned by
// NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Dialect renders SQLite DDL.
var Dialect = ddl.Dialect{
	Name:        "sqlite",
	Quote:       sqIdent,
	MapType:     mapType,
	IfNotExists: true,
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := NewRepository(ctx, Config{
			DSN:     cfg.DSN,
			Table:   cfg.Table,
			Columns: cfg.Columns,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("sqlite", Dialect)
}
