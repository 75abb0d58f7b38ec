// Package storage contains backend-agnostic contracts for loading rows into a
// relational table, plus a registry that lets callers obtain a Repository by
// kind without importing the backend packages directly.
//
// Backends register themselves in init; import internal/storage/all to link
// every backend in.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name: "mysql", "postgres", "mssql",
	// "sqlite".
	Kind string
	// DSN is passed to the backend driver as-is.
	DSN string
	// Table is the possibly schema-qualified target table.
	Table string
	// Columns is the ordered list of destination columns.
	Columns []string
}

// Repository is a connection to one target table.
type Repository interface {
	// CopyFrom inserts rows aligned to columns and reports how many were
	// inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Close releases the underlying pool.
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs the factory for kind, replacing any previous one.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository through the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
