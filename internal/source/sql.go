package source

import (
	"context"
	"database/sql"
	"fmt"

	// drivers selectable through ParseConn
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/som4n/DataLake/internal/table"
)

// openDB opens and pings a database. The handle is closed if the ping fails;
// otherwise the caller owns it.
func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open(%s): %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// queryTable runs query and materializes the result set. Column types come
// from the driver's declared type names when known and are otherwise
// inferred from the values.
func queryTable(ctx context.Context, db *sql.DB, query string, args ...any) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	values := make([][]any, len(cts))
	dest := make([]any, len(cts))
	for rows.Next() {
		row := make([]any, len(cts))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range row {
			// drivers may reuse byte buffers between rows
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			values[i] = append(values[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	cols := make([]*table.Column, len(cts))
	for i, ct := range cts {
		c, err := columnFromSQL(ct.Name(), ct.DatabaseTypeName(), values[i])
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return table.New(cols...)
}

func columnFromSQL(name, dbType string, values []any) (*table.Column, error) {
	if values == nil {
		values = []any{}
	}
	if typ, ok := table.TypeFromDatabaseName(dbType); ok {
		if c, err := table.ColumnOf(name, typ, values); err == nil {
			return c, nil
		}
	}
	return table.ColumnFromValues(name, values)
}
