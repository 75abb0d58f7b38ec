package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/ipc"
	"github.com/apache/arrow/go/v10/arrow/memory"

	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/table"
)

// IPC writes the Arrow IPC file format (a single record batch per table).
type IPC struct {
	Mem memory.Allocator
}

func (c *IPC) Name() string { return "arrow" }
func (c *IPC) Ext() string  { return ".arrow" }

func (c *IPC) Encode(w io.Writer, tbl *table.Table) error {
	if err := checkEncodable(tbl); err != nil {
		return err
	}
	rec, err := ToRecord(c.Mem, tbl)
	if err != nil {
		return errs.E(errs.KindEncode, "arrow", err)
	}
	defer rec.Release()

	// the file writer seeks back to patch the footer
	var sb seekBuffer
	fw, err := ipc.NewFileWriter(&sb, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(c.Mem))
	if err != nil {
		return errs.E(errs.KindEncode, "arrow", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return errs.E(errs.KindEncode, "arrow", err)
	}
	if err := fw.Close(); err != nil {
		return errs.E(errs.KindEncode, "arrow", err)
	}
	if _, err := w.Write(sb.Bytes()); err != nil {
		return errs.E(errs.KindEncode, "arrow", err)
	}
	return nil
}

func (c *IPC) Decode(b []byte) (*table.Table, error) {
	fr, err := ipc.NewFileReader(bytes.NewReader(b), ipc.WithAllocator(c.Mem))
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	// records returned by the reader are only valid until the next call
	recs := make([]arrow.Record, 0, fr.NumRecords())
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, err
		}
		rec.Retain()
		recs = append(recs, rec)
	}
	return FromRecords(fr.Schema(), recs)
}

// seekBuffer is an in-memory io.WriteSeeker. Writes past the end grow the
// buffer; a seek beyond the end leaves a zero-filled gap on the next write.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	n := copy(b.buf[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("seek: negative position %d", abs)
	}
	b.pos = int(abs)
	return abs, nil
}

// Bytes returns the written contents.
func (b *seekBuffer) Bytes() []byte { return b.buf }
