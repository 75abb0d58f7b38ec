package ddl

import (
	"strings"
	"testing"

	"github.com/som4n/DataLake/internal/table"
)

var testDialect = Dialect{
	Name:        "test",
	Quote:       func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
	IfNotExists: true,
	MapType: func(t table.Type) string {
		switch t {
		case table.Int64:
			return "BIGINT"
		case table.Float64:
			return "DOUBLE"
		case table.Bool:
			return "BOOL"
		case table.Timestamp:
			return "TIMESTAMP"
		default:
			return "TEXT"
		}
	},
}

// TestBuildCreateTableSQL verifies that BuildCreateTableSQL generates the
// expected CREATE TABLE statements and surfaces appropriate errors for invalid
// inputs.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		dialect     Dialect
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			dialect:     testDialect,
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			dialect:     testDialect,
			def:         TableDef{FQN: "public.t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			dialect:     testDialect,
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{SQLType: "INT"}}},
			errContains: "column with empty name",
		},
		{
			name:        "column with empty type returns error",
			dialect:     testDialect,
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "column id missing SQLType",
		},
		{
			name:    "quoted with primary key and default",
			dialect: testDialect,
			def: TableDef{
				FQN: "public.users",
				Columns: []ColumnDef{
					{Name: "id", SQLType: "BIGINT", Nullable: true, PrimaryKey: true},
					{Name: "name", SQLType: "TEXT", Nullable: true, Default: "'anon'"},
					{Name: "email", SQLType: "TEXT"},
				},
			},
			wantSQL: "CREATE TABLE IF NOT EXISTS \"public\".\"users\" (\n" +
				"  \"id\" BIGINT NOT NULL,\n" +
				"  \"name\" TEXT DEFAULT 'anon',\n" +
				"  \"email\" TEXT NOT NULL,\n" +
				"  PRIMARY KEY (\"id\")\n)",
		},
		{
			name:    "unquoted dialect without IF NOT EXISTS",
			dialect: Dialect{Name: "plain"},
			def:     TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a", SQLType: "INT", Nullable: true}}},
			wantSQL: "CREATE TABLE t (\n  a INT\n)",
		},
		{
			name: "guard wraps statement",
			dialect: Dialect{Name: "guarded", Guard: func(fqn, stmt string) string {
				return "IF OBJECT_ID('" + fqn + "') IS NULL " + stmt
			}},
			def:     TableDef{FQN: "dbo.t", Columns: []ColumnDef{{Name: "a", SQLType: "INT", Nullable: true}}},
			wantSQL: "IF OBJECT_ID('dbo.t') IS NULL CREATE TABLE dbo.t (\n  a INT\n)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tc.dialect, tc.def)
			if tc.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tc.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tc.wantSQL)
			}
		})
	}
}

func TestFromTable(t *testing.T) {
	t.Parallel()

	tbl := table.MustNew(
		table.MustColumn("id", table.Int64, int64(1)),
		table.MustColumn("name", table.String, "ann"),
		table.MustColumn("score", table.Float64, 1.5),
		table.MustColumn("active", table.Bool, true),
	)

	td, err := FromTable("users", tbl, testDialect, "id")
	if err != nil {
		t.Fatalf("FromTable: %v", err)
	}
	want := []ColumnDef{
		{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
		{Name: "name", SQLType: "TEXT", Nullable: true},
		{Name: "score", SQLType: "DOUBLE", Nullable: true},
		{Name: "active", SQLType: "BOOL", Nullable: true},
	}
	if len(td.Columns) != len(want) {
		t.Fatalf("columns = %d, want %d", len(td.Columns), len(want))
	}
	for i := range want {
		if td.Columns[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, td.Columns[i], want[i])
		}
	}

	if _, err := FromTable("users", tbl, testDialect, "missing"); err == nil {
		t.Fatal("expected error for unknown key column")
	}
	if _, err := FromTable("users", tbl, Dialect{Name: "x"}); err == nil {
		t.Fatal("expected error for dialect without type mapping")
	}
	if _, err := FromTable("users", nil, testDialect); err == nil {
		t.Fatal("expected error for nil table")
	}
}

func TestQuoteFQN(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"t":        `"t"`,
		"public.t": `"public"."t"`,
		"a..b":     `"a"."b"`,
		`we"ird.x`: `"we""ird"."x"`,
	}
	for in, want := range cases {
		if got := testDialect.QuoteFQN(in); got != want {
			t.Errorf("QuoteFQN(%q) = %q, want %q", in, got, want)
		}
	}
}
