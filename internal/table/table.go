// Package table holds the in-memory tabular dataset that flows through an
// ingestion: named, typed columns whose rows are positionally aligned.
//
// A Column stores its values as []any. Non-nil entries are exactly one Go
// type per column Type (string, int64, float64, bool, time.Time); nil is a
// null. New enforces that and the equal-length invariant, so code receiving a
// *Table can index any column by row without further checks.
package table

import (
	"fmt"
	"time"
)

// Type is the logical type of a column.
type Type int

const (
	String Type = iota
	Int64
	Float64
	Bool
	Timestamp
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool { return t >= String && t <= Timestamp }

// Column is a named, homogeneously typed sequence of values.
type Column struct {
	Name   string
	Type   Type
	values []any
}

// NewColumn builds a column, checking every non-nil value against typ.
// Timestamps are normalized to UTC at microsecond precision, the
// resolution of the columnar formats.
func NewColumn(name string, typ Type, values []any) (*Column, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("column %q: unsupported type %s", name, typ)
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		if !matches(typ, v) {
			return nil, fmt.Errorf("column %q row %d: value %v (%T) is not %s", name, i, v, v, typ)
		}
		if ts, ok := v.(time.Time); ok {
			values[i] = ts.UTC().Truncate(time.Microsecond)
		}
	}
	return &Column{Name: name, Type: typ, values: values}, nil
}

// MustColumn is NewColumn that panics on error. Intended for tests and
// literals.
func MustColumn(name string, typ Type, values ...any) *Column {
	c, err := NewColumn(name, typ, values)
	if err != nil {
		panic(err)
	}
	return c
}

func matches(typ Type, v any) bool {
	switch typ {
	case String:
		_, ok := v.(string)
		return ok
	case Int64:
		_, ok := v.(int64)
		return ok
	case Float64:
		_, ok := v.(float64)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case Timestamp:
		_, ok := v.(time.Time)
		return ok
	}
	return false
}

// Len returns the number of values.
func (c *Column) Len() int { return len(c.values) }

// Value returns the i-th value (nil for null).
func (c *Column) Value(i int) any { return c.values[i] }

// IsNull reports whether the i-th value is null.
func (c *Column) IsNull(i int) bool { return c.values[i] == nil }

// Values returns the backing slice. Callers must not modify it.
func (c *Column) Values() []any { return c.values }

func (c *Column) take(indices []int) *Column {
	out := make([]any, len(indices))
	for i, idx := range indices {
		out[i] = c.values[idx]
	}
	return &Column{Name: c.Name, Type: c.Type, values: out}
}

// Table is an ordered set of equal-length columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a Table. It fails on duplicate or empty names and on columns of
// unequal length.
func New(cols ...*Column) (*Table, error) {
	t := &Table{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("table: column %d is nil", i)
		}
		if c.Name == "" {
			return nil, fmt.Errorf("table: column %d has an empty name", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c.Name)
		}
		if i > 0 && c.Len() != t.rows {
			return nil, fmt.Errorf("table: column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
		t.rows = c.Len()
	}
	return t, nil
}

// MustNew is New that panics on error.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the columns in order. Callers must not modify the slice.
func (t *Table) Columns() []*Column { return t.cols }

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Row returns the values of row i across all columns.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.values[i]
	}
	return out
}

// Take returns a new Table holding the given rows in the given order.
func (t *Table) Take(indices []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.take(indices)
	}
	return &Table{cols: cols, index: t.index, rows: len(indices)}
}

// Project returns a Table restricted to the named columns, in that order.
func (t *Table) Project(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("table: unknown column %q", n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Equal reports whether both tables have the same column names, types and
// values in the same order.
func (t *Table) Equal(o *Table) bool {
	if t.NumCols() != o.NumCols() || t.NumRows() != o.NumRows() {
		return false
	}
	for i, c := range t.cols {
		oc := o.cols[i]
		if c.Name != oc.Name || c.Type != oc.Type {
			return false
		}
		for r := range c.values {
			if !valueEqual(c.values[r], oc.values[r]) {
				return false
			}
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return a == b
}

// Concat appends the rows of tables that share column names and types, in
// order. With no tables it returns an empty table.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return New()
	}
	first := tables[0]
	cols := make([]*Column, first.NumCols())
	for i, c := range first.cols {
		n := 0
		for _, t := range tables {
			n += t.rows
		}
		cols[i] = &Column{Name: c.Name, Type: c.Type, values: make([]any, 0, n)}
	}
	for ti, t := range tables {
		if t.NumCols() != first.NumCols() {
			return nil, fmt.Errorf("table: concat: table %d has %d columns, want %d", ti, t.NumCols(), first.NumCols())
		}
		for i, c := range t.cols {
			if c.Name != cols[i].Name || c.Type != cols[i].Type {
				return nil, fmt.Errorf("table: concat: table %d column %d is %s %s, want %s %s",
					ti, i, c.Name, c.Type, cols[i].Name, cols[i].Type)
			}
			cols[i].values = append(cols[i].values, c.values...)
		}
	}
	return New(cols...)
}
