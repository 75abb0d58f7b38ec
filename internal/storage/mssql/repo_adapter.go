package mssql

import (
	"context"

	"github.com/som4n/DataLake/internal/ddl"
	"github.com/som4n/DataLake/internal/storage"
)

var _ storage.Repository = (*wrappedRepo)(nil)

// Dialect renders SQL Server DDL.
var Dialect = ddl.Dialect{
	Name:    "mssql",
	Quote:   msIdent,
	MapType: mapType,
	Guard:   guard,
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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
	storage.RegisterDDL("mssql", Dialect)
}

// wrappedRepo adapts *mssql.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}
