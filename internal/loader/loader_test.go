package loader

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/som4n/DataLake/internal/errs"
)

const usersCSV = "id,name,email,age\n1,Ann,ann@example.com,31\n2,Bob,,40\n3,Cy,cy@example.com,22\n"

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_SQLiteCreateTable(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "shop.db")

	n, err := Load(ctx, Options{
		CSVPath:     writeCSV(t, usersCSV),
		Driver:      "sqlite",
		Database:    dbPath,
		CreateTable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT id, name, email FROM users ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	type user struct {
		id    int64
		name  string
		email sql.NullString
	}
	var got []user
	for rows.Next() {
		var u user
		require.NoError(t, rows.Scan(&u.id, &u.name, &u.email))
		got = append(got, u)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []user{
		{id: 1, name: "Ann", email: sql.NullString{String: "ann@example.com", Valid: true}},
		{id: 2, name: "Bob"},
		{id: 3, name: "Cy", email: sql.NullString{String: "cy@example.com", Valid: true}},
	}, got)

	// age was not selected
	_, err = db.Exec(`SELECT age FROM users`)
	assert.Error(t, err)
}

func TestLoad_CustomColumnsAndBatches(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "shop.db")

	n, err := Load(ctx, Options{
		CSVPath:     writeCSV(t, usersCSV),
		Driver:      "sqlite",
		Database:    dbPath,
		Table:       "people",
		Columns:     []string{"name", "age"},
		CreateTable: true,
		BatchSize:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var sum int64
	require.NoError(t, db.QueryRow(`SELECT SUM(age) FROM people`).Scan(&sum))
	assert.Equal(t, int64(93), sum)
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	csvPath := writeCSV(t, usersCSV)

	tests := []struct {
		name string
		opt  Options
		kind errs.Kind
	}{
		{name: "no_csv", opt: Options{Driver: "sqlite", Database: "x.db"}, kind: errs.KindConfig},
		{name: "unknown_driver", opt: Options{CSVPath: csvPath, Driver: "oracle"}, kind: errs.KindConfig},
		{name: "sqlite_without_file", opt: Options{CSVPath: csvPath, Driver: "sqlite"}, kind: errs.KindConfig},
		{name: "missing_csv", opt: Options{CSVPath: filepath.Join(t.TempDir(), "nope.csv"), Driver: "sqlite", Database: filepath.Join(t.TempDir(), "a.db")}, kind: errs.KindRead},
		{name: "missing_column", opt: Options{CSVPath: csvPath, Driver: "sqlite", Database: filepath.Join(t.TempDir(), "b.db"), Columns: []string{"id", "phone"}}, kind: errs.KindRead},
		// table was never created
		{name: "no_table", opt: Options{CSVPath: csvPath, Driver: "sqlite", Database: filepath.Join(t.TempDir(), "c.db")}, kind: errs.KindWrite},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(ctx, tc.opt)
			require.Error(t, err)
			assert.Equal(t, tc.kind, errs.KindOf(err), err.Error())
		})
	}
}

func TestOptions_DSNDefaults(t *testing.T) {
	opt := Options{Host: "db", User: "u", Password: "p", Database: "shop"}
	opt.defaults()
	assert.Equal(t, "mysql", opt.Driver)
	assert.Equal(t, "users", opt.Table)
	assert.Equal(t, []string{"id", "name", "email"}, opt.Columns)
	assert.Equal(t, 3306, opt.Port)

	dsn, err := opt.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "u:p@tcp(db:3306)/shop")

	pg := Options{Driver: "postgres", Host: "db", User: "u", Password: "p", Database: "shop"}
	pg.defaults()
	dsn, err = pg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/shop", dsn)

	ms := Options{Driver: "mssql", Host: "db", User: "sa", Password: "p", Database: "shop"}
	ms.defaults()
	dsn, err = ms.DSN()
	require.NoError(t, err)
	assert.Equal(t, "sqlserver://sa:p@db:1433?database=shop", dsn)
}
