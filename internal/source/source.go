// Package source reads tabular data from local files, SQL databases and
// lake objects into a table.Table.
//
// Every failure is returned as an errs.KindRead error with the cause
// preserved, so callers can still match e.g. os.ErrNotExist.
package source

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/som4n/DataLake/internal/codec"
	"github.com/som4n/DataLake/internal/config"
	"github.com/som4n/DataLake/internal/datasource"
	"github.com/som4n/DataLake/internal/datasource/file"
	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/objstore"
	pcsv "github.com/som4n/DataLake/internal/parser/csv"
	pjson "github.com/som4n/DataLake/internal/parser/json"
	"github.com/som4n/DataLake/internal/table"
)

// Source kinds.
const (
	KindFile   = "file"
	KindSQL    = "sql"
	KindObject = "object"
)

// Spec describes one source.
type Spec struct {
	// Kind is file, sql or object. Empty infers it: Query set means sql,
	// URL set means object, otherwise file.
	Kind string
	// Format is csv, json, parquet or arrow. Empty infers it from the file
	// or object extension.
	Format string
	// Path is the local file for KindFile.
	Path string
	// Conn is a URL-style connection string for KindSQL (see ParseConn).
	Conn string
	// Driver and DSN bypass ParseConn when both are set.
	Driver string
	DSN    string
	// Query is the SQL statement for KindSQL.
	Query string
	// URL addresses an object or an object prefix for KindObject
	// (s3://bucket/key, file:///dir/key).
	URL string
	// Options is the parser options bag (comma, trim_space, allow_arrays...).
	Options config.Options
}

// Describe returns a short human-readable name for logs and results.
func (s Spec) Describe() string {
	switch s.kind() {
	case KindSQL:
		if s.Conn != "" {
			return "sql " + redact(s.Conn)
		}
		return "sql " + s.Driver
	case KindObject:
		return s.URL
	}
	return s.Path
}

func (s Spec) kind() string {
	switch {
	case s.Kind != "":
		return strings.ToLower(s.Kind)
	case s.Query != "":
		return KindSQL
	case s.URL != "":
		return KindObject
	}
	return KindFile
}

// FormatFromExt maps a file extension to a format name.
func FormatFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return "csv"
	case ".json", ".ndjson", ".jsonl":
		return "json"
	case ".parquet":
		return "parquet"
	case ".arrow", ".ipc", ".feather":
		return "arrow"
	}
	return ""
}

// StoreOpener resolves an object-store URL into a store and a key.
type StoreOpener func(ctx context.Context, rawURL string) (objstore.Store, string, error)

// Reader reads sources. The zero value is usable: it discards logs and opens
// object stores with default options.
type Reader struct {
	Logger    *slog.Logger
	OpenStore StoreOpener
}

func (r *Reader) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Read loads the whole source described by spec.
func (r *Reader) Read(ctx context.Context, spec Spec) (*table.Table, error) {
	start := time.Now()
	var (
		tbl *table.Table
		err error
	)
	switch k := spec.kind(); k {
	case KindFile:
		tbl, err = r.readFile(ctx, spec)
	case KindSQL:
		tbl, err = r.readSQL(ctx, spec)
	case KindObject:
		tbl, err = r.readObject(ctx, spec)
	default:
		err = errs.Errorf(errs.KindRead, "read", "unknown source kind %q", k)
	}
	if err != nil {
		r.logger().ErrorContext(ctx, "source read failed", "source", spec.Describe(), "error", err)
		return nil, err
	}
	r.logger().InfoContext(ctx, "source read",
		"source", spec.Describe(),
		"rows", tbl.NumRows(),
		"columns", tbl.NumCols(),
		"duration", time.Since(start))
	return tbl, nil
}

func (r *Reader) readFile(ctx context.Context, spec Spec) (*table.Table, error) {
	op := "read " + spec.Path
	if spec.Path == "" {
		return nil, errs.Errorf(errs.KindRead, "read", "file source has no path")
	}
	format := spec.Format
	if format == "" {
		format = FormatFromExt(spec.Path)
	}
	var src datasource.Source = file.NewLocal(spec.Path)

	switch strings.ToLower(format) {
	case "csv", "json":
		rc, err := src.Open(ctx)
		if err != nil {
			return nil, errs.E(errs.KindRead, op, err)
		}
		defer rc.Close()
		var tbl *table.Table
		if strings.EqualFold(format, "csv") {
			tbl, err = pcsv.Read(rc, pcsv.FromConfigOptions(spec.Options))
		} else {
			tbl, err = pjson.Read(rc, pjson.FromConfigOptions(spec.Options))
		}
		if err != nil {
			return nil, errs.E(errs.KindRead, op, err)
		}
		return tbl, nil

	case "parquet", "arrow":
		b, err := datasource.ReadAll(ctx, src)
		if err != nil {
			return nil, errs.E(errs.KindRead, op, err)
		}
		return decode(op, format, b)
	}
	return nil, errs.Errorf(errs.KindRead, op, "unsupported file format %q", format)
}

func decode(op, format string, b []byte) (*table.Table, error) {
	c, err := codec.New(format, codec.Options{})
	if err != nil {
		return nil, errs.E(errs.KindRead, op, err)
	}
	tbl, err := c.Decode(b)
	if err != nil {
		return nil, errs.E(errs.KindRead, op, err)
	}
	return tbl, nil
}

func (r *Reader) readSQL(ctx context.Context, spec Spec) (*table.Table, error) {
	if strings.TrimSpace(spec.Query) == "" {
		return nil, errs.Errorf(errs.KindRead, "read sql", "sql source has no query")
	}
	driver, dsn := spec.Driver, spec.DSN
	if driver == "" || dsn == "" {
		var err error
		driver, dsn, err = ParseConn(spec.Conn)
		if err != nil {
			return nil, errs.E(errs.KindRead, "read sql", err)
		}
	}
	op := "read sql " + driver

	db, err := openDB(ctx, driver, dsn)
	if err != nil {
		return nil, errs.E(errs.KindRead, op, err)
	}
	defer db.Close()

	tbl, err := queryTable(ctx, db, spec.Query)
	if err != nil {
		return nil, errs.E(errs.KindRead, op, err)
	}
	return tbl, nil
}

// readObject reads one object, or every parquet/arrow object below a prefix
// when the URL does not name a file with a known extension. Objects under a
// prefix are concatenated in key order and must share a schema.
func (r *Reader) readObject(ctx context.Context, spec Spec) (*table.Table, error) {
	op := "read " + spec.URL
	open := r.OpenStore
	if open == nil {
		open = func(ctx context.Context, rawURL string) (objstore.Store, string, error) {
			return objstore.Open(ctx, rawURL, objstore.Options{})
		}
	}
	store, key, err := open(ctx, spec.URL)
	if err != nil {
		return nil, errs.E(errs.KindRead, op, err)
	}

	format := spec.Format
	if format == "" {
		format = FormatFromExt(key)
	}
	if format != "" {
		b, err := store.Get(ctx, key)
		if err != nil {
			return nil, errs.E(errs.KindRead, op, err)
		}
		return decode(op, format, b)
	}

	keys, err := store.List(ctx, key)
	if err != nil {
		return nil, errs.E(errs.KindRead, op, err)
	}
	var parts []*table.Table
	for _, k := range keys {
		c, err := codec.ForExt(path.Ext(k))
		if err != nil {
			// not a columnar object
			continue
		}
		b, err := store.Get(ctx, k)
		if err != nil {
			return nil, errs.E(errs.KindRead, op, err)
		}
		t, err := c.Decode(b)
		if err != nil {
			return nil, errs.E(errs.KindRead, "read "+path.Base(k), err)
		}
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return nil, errs.E(errs.KindRead, op, objstore.ErrNotFound)
	}
	tbl, err := table.Concat(parts...)
	if err != nil {
		return nil, errs.E(errs.KindRead, op, err)
	}
	return tbl, nil
}
