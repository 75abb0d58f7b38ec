package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/som4n/DataLake/internal/ddl"
	"github.com/som4n/DataLake/internal/table"
)

var (
	dialectMu sync.RWMutex
	dialects  = map[string]ddl.Dialect{}
)

// RegisterDDL installs the DDL dialect for a backend kind. Backends call it
// from init next to Register.
func RegisterDDL(kind string, d ddl.Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[kind] = d
}

// Dialect returns the DDL dialect registered for kind.
func Dialect(kind string) (ddl.Dialect, bool) {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	d, ok := dialects[kind]
	return d, ok
}

// CreateTableSQL renders the CREATE TABLE statement for tbl in the dialect
// of kind.
func CreateTableSQL(kind, fqn string, tbl *table.Table, keys ...string) (string, error) {
	d, ok := Dialect(kind)
	if !ok {
		return "", fmt.Errorf("no DDL dialect registered for storage.kind=%s", kind)
	}
	td, err := ddl.FromTable(fqn, tbl, d, keys...)
	if err != nil {
		return "", fmt.Errorf("infer table definition: %w", err)
	}
	return ddl.BuildCreateTableSQL(d, td)
}

// EnsureTable creates fqn shaped like tbl unless it already exists.
func EnsureTable(ctx context.Context, repo Repository, kind, fqn string, tbl *table.Table, keys ...string) error {
	stmt, err := CreateTableSQL(kind, fqn, tbl, keys...)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}
