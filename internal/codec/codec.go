// Package codec serializes table.Table values to columnar files.
//
// Two formats are supported, both built on Apache Arrow: Parquet (the default
// for lake objects) and the Arrow IPC file format. Encoding fails with an
// errs.KindEncode error; decode errors are returned unclassified so that the
// caller can attach its own kind.
package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet/compress"

	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/table"
)

// Codec encodes and decodes one file format.
type Codec interface {
	// Name is the format name used in configuration ("parquet", "arrow").
	Name() string
	// Ext is the file extension including the dot.
	Ext() string
	Encode(w io.Writer, tbl *table.Table) error
	Decode(b []byte) (*table.Table, error)
}

// Options selects format-specific settings.
type Options struct {
	// Compression applies to Parquet: snappy (default), zstd, gzip, none.
	Compression string
	// Mem is the Arrow allocator. Nil means a Go allocator.
	Mem memory.Allocator
}

// New returns the codec for format. An empty format means parquet.
func New(format string, opt Options) (Codec, error) {
	mem := opt.Mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	switch strings.ToLower(format) {
	case "", "parquet":
		c, err := ParseCompression(opt.Compression)
		if err != nil {
			return nil, err
		}
		return &Parquet{Compression: c, Mem: mem}, nil
	case "arrow", "ipc", "feather":
		return &IPC{Mem: mem}, nil
	}
	return nil, errs.Errorf(errs.KindConfig, "codec", "unknown output format %q", format)
}

// ForExt returns the codec matching a file extension, for decoding objects
// whose format is only known from the name.
func ForExt(ext string) (Codec, error) {
	switch strings.ToLower(ext) {
	case ".parquet":
		return New("parquet", Options{})
	case ".arrow", ".ipc", ".feather":
		return New("arrow", Options{})
	}
	return nil, fmt.Errorf("no codec for extension %q", ext)
}

// ParseCompression maps a compression name to a Parquet codec.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, errs.Errorf(errs.KindConfig, "codec", "unknown compression %q", name)
}

func checkEncodable(tbl *table.Table) error {
	if tbl == nil {
		return errs.Errorf(errs.KindEncode, "encode", "nil table")
	}
	if tbl.NumCols() == 0 {
		return errs.Errorf(errs.KindEncode, "encode", "table has no columns")
	}
	return nil
}
