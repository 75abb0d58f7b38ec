package codec

import (
	"bytes"
	"context"
	"io"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/compress"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"

	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/table"
)

// rowGroupSize caps rows per Parquet row group.
const rowGroupSize = 64 * 1024

// Parquet writes one Parquet file per table with the Arrow schema stored in
// the file metadata, so timestamps and nullability survive a round trip.
type Parquet struct {
	Compression compress.Compression
	Mem         memory.Allocator
}

func (p *Parquet) Name() string { return "parquet" }
func (p *Parquet) Ext() string  { return ".parquet" }

func (p *Parquet) Encode(w io.Writer, tbl *table.Table) error {
	if err := checkEncodable(tbl); err != nil {
		return err
	}
	rec, err := ToRecord(p.Mem, tbl)
	if err != nil {
		return errs.E(errs.KindEncode, "parquet", err)
	}
	defer rec.Release()

	at := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer at.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(p.Compression),
		parquet.WithAllocator(p.Mem),
	)
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	if err := pqarrow.WriteTable(at, w, rowGroupSize, props, arrProps); err != nil {
		return errs.E(errs.KindEncode, "parquet", err)
	}
	return nil
}

func (p *Parquet) Decode(b []byte) (*table.Table, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, p.Mem)
	if err != nil {
		return nil, err
	}
	at, err := reader.ReadTable(context.Background())
	if err != nil {
		return nil, err
	}
	defer at.Release()
	return FromTable(at)
}
