// Package writer serializes a table into one columnar object below a target
// path:
//
//	<targetPath>/data_<YYYYMMDD_HHMMSS>.<ext>
//
// The timestamp is the UTC wall clock at whole-second granularity, so two
// writes to the same path within the same second replace each other.
package writer

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/som4n/DataLake/internal/codec"
	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/objstore"
	"github.com/som4n/DataLake/internal/table"
)

// TimestampLayout formats the object name timestamp.
const TimestampLayout = "20060102_150405"

// MetaRecordCount is the object metadata key holding the row count.
const MetaRecordCount = "record-count"

// WriteResult describes one written object.
type WriteResult struct {
	Key   string `json:"key"`
	Rows  int    `json:"rows"`
	Bytes int    `json:"bytes"`
}

// Writer encodes tables with Codec and stores them in Store.
type Writer struct {
	Store  objstore.Store
	Codec  codec.Codec
	Logger *slog.Logger
	// Now returns the write time. Nil means time.Now.
	Now func() time.Time
}

// New returns a Writer with the default clock.
func New(store objstore.Store, c codec.Codec, logger *slog.Logger) *Writer {
	return &Writer{Store: store, Codec: c, Logger: logger}
}

// ObjectName returns the file name for an object written at t.
func ObjectName(t time.Time, ext string) string {
	return "data_" + t.UTC().Format(TimestampLayout) + ext
}

// Write encodes tbl and stores it under targetPath. Encoding failures are
// errs.KindEncode; store failures are errs.KindWrite. Nothing is stored when
// encoding fails.
func (w *Writer) Write(ctx context.Context, tbl *table.Table, targetPath string) (WriteResult, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	key := objstore.JoinKey(targetPath, ObjectName(now(), w.Codec.Ext()))

	var buf bytes.Buffer
	if err := w.Codec.Encode(&buf, tbl); err != nil {
		return WriteResult{}, errs.E(errs.KindEncode, "encode "+key, err)
	}

	meta := map[string]string{MetaRecordCount: strconv.Itoa(tbl.NumRows())}
	if err := w.Store.Put(ctx, key, buf.Bytes(), meta); err != nil {
		return WriteResult{}, errs.E(errs.KindWrite, "write "+key, err)
	}

	res := WriteResult{Key: key, Rows: tbl.NumRows(), Bytes: buf.Len()}
	w.logger().DebugContext(ctx, "object written", "key", key, "rows", res.Rows, "bytes", res.Bytes)
	return res, nil
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.Logger
}
