// Package loader copies selected columns of a CSV file into a relational
// table through the storage registry.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/source"
	"github.com/som4n/DataLake/internal/storage"
	"github.com/som4n/DataLake/internal/storage/mssql"
	"github.com/som4n/DataLake/internal/storage/mysql"
	"github.com/som4n/DataLake/internal/storage/postgres"
	_ "github.com/som4n/DataLake/internal/storage/sqlite"
)

// Defaults for a bare invocation.
const (
	DefaultDriver = "mysql"
	DefaultTable  = "users"
)

// DefaultColumns are loaded when Options.Columns is empty.
var DefaultColumns = []string{"id", "name", "email"}

var defaultPorts = map[string]int{
	"mysql":    3306,
	"postgres": 5432,
	"mssql":    1433,
}

// Options configures one load.
type Options struct {
	CSVPath string

	// Driver is a storage kind: mysql, postgres, mssql or sqlite.
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	// Database is the database name; for sqlite it is the file path.
	Database string

	Table       string
	Columns     []string
	CreateTable bool

	// BatchSize bounds rows per insert. Zero loads everything in one batch.
	BatchSize int

	// CSV parser options (comma, trim_space, header_map...).
	Parser map[string]any

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Driver == "" {
		o.Driver = DefaultDriver
	}
	if o.Table == "" {
		o.Table = DefaultTable
	}
	if len(o.Columns) == 0 {
		o.Columns = append([]string(nil), DefaultColumns...)
	}
	if o.Port == 0 {
		o.Port = defaultPorts[o.Driver]
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// DSN renders the driver-specific connection string for o.
func (o Options) DSN() (string, error) {
	switch o.Driver {
	case "mysql":
		return mysql.DSN(o.Host, o.Port, o.User, o.Password, o.Database), nil
	case "postgres":
		return postgres.DSN(o.Host, o.Port, o.User, o.Password, o.Database), nil
	case "mssql":
		return mssql.DSN(o.Host, o.Port, o.User, o.Password, o.Database), nil
	case "sqlite":
		if o.Database == "" {
			return "", fmt.Errorf("sqlite requires a database file")
		}
		return o.Database, nil
	}
	return "", fmt.Errorf("unsupported driver %q (have %s)", o.Driver, strings.Join(storage.ListKinds(), ", "))
}

// Load reads opt.CSVPath, keeps opt.Columns and inserts them into opt.Table.
// It returns the number of rows inserted. The repository is closed on every
// path once it was opened.
func Load(ctx context.Context, opt Options) (int64, error) {
	const op = "load"
	opt.defaults()
	log := opt.Logger.With("driver", opt.Driver, "table", opt.Table)

	if opt.CSVPath == "" {
		return 0, errs.Errorf(errs.KindConfig, op, "csv path is required")
	}
	dsn, err := opt.DSN()
	if err != nil {
		return 0, errs.E(errs.KindConfig, op, err)
	}

	start := time.Now()
	reader := source.Reader{Logger: opt.Logger}
	tbl, err := reader.Read(ctx, source.Spec{
		Kind:    source.KindFile,
		Format:  "csv",
		Path:    opt.CSVPath,
		Options: opt.Parser,
	})
	if err != nil {
		return 0, err
	}
	selected, err := tbl.Project(opt.Columns...)
	if err != nil {
		return 0, errs.E(errs.KindRead, op, err)
	}
	log.DebugContext(ctx, "csv read", "path", opt.CSVPath, "rows", selected.NumRows())

	repo, err := storage.New(ctx, storage.Config{
		Kind:    opt.Driver,
		DSN:     dsn,
		Table:   opt.Table,
		Columns: opt.Columns,
	})
	if err != nil {
		return 0, errs.E(errs.KindWrite, op, fmt.Errorf("connect: %w", err))
	}
	defer repo.Close()

	if opt.CreateTable {
		if err := storage.EnsureTable(ctx, repo, opt.Driver, opt.Table, selected); err != nil {
			return 0, errs.E(errs.KindWrite, op, err)
		}
	}

	batch := opt.BatchSize
	if batch <= 0 {
		batch = max(selected.NumRows(), 1)
	}
	n, err := storage.LoadBatches(ctx, opt.Columns, storage.StreamRows(ctx, selected), batch, repo.CopyFrom)
	if err != nil {
		return n, errs.E(errs.KindWrite, op, err)
	}
	log.InfoContext(ctx, "csv loaded", "rows", n, "duration", time.Since(start))
	return n, nil
}
