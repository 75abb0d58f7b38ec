package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/som4n/DataLake/internal/ddl"
	"github.com/som4n/DataLake/internal/table"
)

func TestEnsureTable_UsesRegisteredDialect(t *testing.T) {
	t.Parallel()

	RegisterDDL("fake-ddl", ddl.Dialect{
		Name:        "fake",
		IfNotExists: true,
		MapType: func(typ table.Type) string {
			if typ == table.Int64 {
				return "INT"
			}
			return "TEXT"
		},
	})

	tbl := table.MustNew(
		table.MustColumn("id", table.Int64, int64(1)),
		table.MustColumn("name", table.String, "ann"),
	)
	repo := &fakeRepo{}
	if err := EnsureTable(context.Background(), repo, "fake-ddl", "users", tbl); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(repo.execs) != 1 {
		t.Fatalf("execs = %d, want 1", len(repo.execs))
	}
	want := "CREATE TABLE IF NOT EXISTS users (\n  id INT,\n  name TEXT\n)"
	if repo.execs[0] != want {
		t.Fatalf("DDL = %q, want %q", repo.execs[0], want)
	}
}

func TestEnsureTable_UnknownKind(t *testing.T) {
	t.Parallel()

	tbl := table.MustNew(table.MustColumn("id", table.Int64, int64(1)))
	err := EnsureTable(context.Background(), &fakeRepo{}, "no-such-kind", "t", tbl)
	if err == nil || !strings.Contains(err.Error(), "no DDL dialect") {
		t.Fatalf("err = %v, want missing dialect error", err)
	}
}
