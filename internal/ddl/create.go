// Package ddl renders CREATE TABLE statements for the database backends in
// internal/storage from a small dialect-agnostic model.
//
// A Dialect supplies identifier quoting and the mapping from logical column
// types to SQL types; everything else (column order, NOT NULL, PRIMARY KEY
// clause, IF NOT EXISTS) is shared.
package ddl

import (
	"fmt"
	"strings"

	"github.com/som4n/DataLake/internal/table"
)

// Dialect is the per-backend part of DDL rendering.
type Dialect struct {
	// Name is used in error messages only.
	Name string

	// Quote quotes a single identifier segment. Nil leaves names as-is.
	Quote func(string) string

	// MapType maps a logical column type to a SQL type.
	MapType func(table.Type) string

	// IfNotExists renders CREATE TABLE IF NOT EXISTS. Backends without the
	// clause (SQL Server) set this to false and guard the statement
	// themselves through Guard.
	IfNotExists bool

	// Guard, when set, wraps the rendered CREATE statement. It receives the
	// unquoted FQN.
	Guard func(fqn, stmt string) string
}

func (d Dialect) quote(id string) string {
	if d.Quote == nil {
		return id
	}
	return d.Quote(id)
}

// QuoteFQN quotes a possibly schema-qualified name segment by segment.
// Empty segments are dropped.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, d.quote(p))
	}
	return strings.Join(out, ".")
}

// FromTable derives a table definition from the columns of tbl. Every
// column is nullable; keys become the primary key.
func FromTable(fqn string, tbl *table.Table, d Dialect, keys ...string) (TableDef, error) {
	if tbl == nil || tbl.NumCols() == 0 {
		return TableDef{}, fmt.Errorf("%s ddl: table %s has no columns", d.Name, fqn)
	}
	if d.MapType == nil {
		return TableDef{}, fmt.Errorf("%s ddl: dialect has no type mapping", d.Name)
	}
	pk := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := tbl.Column(k); !ok {
			return TableDef{}, fmt.Errorf("%s ddl: key column %q not in table", d.Name, k)
		}
		pk[k] = true
	}
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, tbl.NumCols())}
	for _, c := range tbl.Columns() {
		td.Columns = append(td.Columns, ColumnDef{
			Name:       c.Name,
			SQLType:    d.MapType(c.Type),
			Nullable:   !pk[c.Name],
			PrimaryKey: pk[c.Name],
		})
	}
	return td, nil
}

// BuildCreateTableSQL renders t in dialect d.
//
// Rules:
//   - t.FQN must be non-empty.
//   - Each column must have a non-empty Name and SQLType.
//   - Primary-key columns are always NOT NULL.
//   - PRIMARY KEY is a separate trailing clause in column order.
//   - Default is emitted as a raw SQL expression.
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.quote(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	create := "CREATE TABLE "
	if d.IfNotExists {
		create += "IF NOT EXISTS "
	}
	stmt := fmt.Sprintf("%s%s (\n  %s\n)", create, d.QuoteFQN(fqn), strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		stmt = d.Guard(fqn, stmt)
	}
	return stmt, nil
}
