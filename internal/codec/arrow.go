package codec

import (
	"fmt"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"

	"github.com/som4n/DataLake/internal/table"
)

// arrowType maps a column type to its Arrow type. Timestamps are stored as
// microseconds in UTC.
func arrowType(t table.Type) (arrow.DataType, error) {
	switch t {
	case table.String:
		return arrow.BinaryTypes.String, nil
	case table.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case table.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case table.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case table.Timestamp:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	}
	return nil, fmt.Errorf("no arrow type for %s", t)
}

// Schema returns the Arrow schema for tbl. Every field is nullable.
func Schema(tbl *table.Table) (*arrow.Schema, error) {
	fields := make([]arrow.Field, tbl.NumCols())
	for i, c := range tbl.Columns() {
		dt, err := arrowType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord builds a single Arrow record holding all rows of tbl. The caller
// releases it.
func ToRecord(mem memory.Allocator, tbl *table.Table) (arrow.Record, error) {
	schema, err := Schema(tbl)
	if err != nil {
		return nil, err
	}
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, c := range tbl.Columns() {
		if err := appendColumn(b.Field(i), c); err != nil {
			return nil, err
		}
	}
	return b.NewRecord(), nil
}

func appendColumn(fb array.Builder, c *table.Column) error {
	fb.Reserve(c.Len())
	for r := 0; r < c.Len(); r++ {
		v := c.Value(r)
		if v == nil {
			fb.AppendNull()
			continue
		}
		switch b := fb.(type) {
		case *array.StringBuilder:
			b.Append(v.(string))
		case *array.Int64Builder:
			b.Append(v.(int64))
		case *array.Float64Builder:
			b.Append(v.(float64))
		case *array.BooleanBuilder:
			b.Append(v.(bool))
		case *array.TimestampBuilder:
			b.Append(arrow.Timestamp(v.(time.Time).UnixMicro()))
		default:
			return fmt.Errorf("column %q: unsupported builder %T", c.Name, fb)
		}
	}
	return nil
}

// columnType maps an Arrow type read from a file back to a column type.
// Narrower integer and float widths widen; dates become timestamps.
func columnType(dt arrow.DataType) (table.Type, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY:
		return table.String, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return table.Int64, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return table.Float64, nil
	case arrow.BOOL:
		return table.Bool, nil
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return table.Timestamp, nil
	}
	return 0, fmt.Errorf("unsupported arrow type %s", dt)
}

// fromChunks converts the chunks of one Arrow column into a table column.
func fromChunks(field arrow.Field, chunks []arrow.Array) (*table.Column, error) {
	typ, err := columnType(field.Type)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", field.Name, err)
	}
	n := 0
	for _, ch := range chunks {
		n += ch.Len()
	}
	values := make([]any, 0, n)
	for _, ch := range chunks {
		for i := 0; i < ch.Len(); i++ {
			if ch.IsNull(i) {
				values = append(values, nil)
				continue
			}
			v, err := valueAt(ch, i)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", field.Name, err)
			}
			values = append(values, v)
		}
	}
	return table.NewColumn(field.Name, typ, values)
}

func valueAt(a arrow.Array, i int) (any, error) {
	switch arr := a.(type) {
	case *array.String:
		return arr.Value(i), nil
	case *array.LargeString:
		return arr.Value(i), nil
	case *array.Binary:
		return string(arr.Value(i)), nil
	case *array.Int8:
		return int64(arr.Value(i)), nil
	case *array.Int16:
		return int64(arr.Value(i)), nil
	case *array.Int32:
		return int64(arr.Value(i)), nil
	case *array.Int64:
		return arr.Value(i), nil
	case *array.Uint8:
		return int64(arr.Value(i)), nil
	case *array.Uint16:
		return int64(arr.Value(i)), nil
	case *array.Uint32:
		return int64(arr.Value(i)), nil
	case *array.Float32:
		return float64(arr.Value(i)), nil
	case *array.Float64:
		return arr.Value(i), nil
	case *array.Boolean:
		return arr.Value(i), nil
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return timestampToTime(int64(arr.Value(i)), unit), nil
	case *array.Date32:
		return time.Unix(int64(arr.Value(i))*86400, 0).UTC(), nil
	case *array.Date64:
		return time.UnixMilli(int64(arr.Value(i))).UTC(), nil
	}
	return nil, fmt.Errorf("unsupported arrow array %T", a)
}

func timestampToTime(v int64, unit arrow.TimeUnit) time.Time {
	switch unit {
	case arrow.Second:
		return time.Unix(v, 0).UTC()
	case arrow.Millisecond:
		return time.UnixMilli(v).UTC()
	case arrow.Microsecond:
		return time.UnixMicro(v).UTC()
	default:
		return time.Unix(0, v).UTC()
	}
}

// FromTable converts an Arrow table into a table.Table.
func FromTable(at arrow.Table) (*table.Table, error) {
	schema := at.Schema()
	cols := make([]*table.Column, at.NumCols())
	for i := 0; i < int(at.NumCols()); i++ {
		c, err := fromChunks(schema.Field(i), at.Column(i).Data().Chunks())
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return table.New(cols...)
}

// FromRecords converts a sequence of Arrow records sharing schema.
func FromRecords(schema *arrow.Schema, recs []arrow.Record) (*table.Table, error) {
	cols := make([]*table.Column, len(schema.Fields()))
	for i, f := range schema.Fields() {
		chunks := make([]arrow.Array, len(recs))
		for j, rec := range recs {
			chunks[j] = rec.Column(i)
		}
		c, err := fromChunks(f, chunks)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return table.New(cols...)
}
