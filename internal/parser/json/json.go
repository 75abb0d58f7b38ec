// Package json reads JSON records into a table.Table.
//
// Two layouts are accepted and may not be mixed within one input:
//
//	[{"id":1,"name":"a"},{"id":2,"name":"b"}]
//
//	{"id":1,"name":"a"}
//	{"id":2,"name":"b"}
//
// Columns appear in the order their keys are first seen. A key missing from a
// record is null for that row. Nested objects and arrays are kept as compact
// JSON text.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/som4n/DataLake/internal/config"
	"github.com/som4n/DataLake/internal/table"
)

// Options configures the reader.
type Options struct {
	// AllowArrays accepts a top-level array of objects. Defaults to true in
	// FromConfigOptions.
	AllowArrays bool
}

// FromConfigOptions maps the "allow_arrays" pipeline option.
func FromConfigOptions(o config.Options) Options {
	return Options{AllowArrays: o.Bool("allow_arrays", true)}
}

type field struct {
	key   string
	value any
}

// collector accumulates records column-wise.
type collector struct {
	names []string
	index map[string]int
	cols  [][]any
	rows  int
}

func (c *collector) add(rec []field) {
	for _, f := range rec {
		i, ok := c.index[f.key]
		if !ok {
			i = len(c.names)
			c.index[f.key] = i
			c.names = append(c.names, f.key)
			c.cols = append(c.cols, make([]any, c.rows))
		}
		c.cols[i] = append(c.cols[i], f.value)
	}
	c.rows++
	for i := range c.cols {
		if len(c.cols[i]) < c.rows {
			c.cols[i] = append(c.cols[i], nil)
		}
	}
}

func (c *collector) table() (*table.Table, error) {
	cols := make([]*table.Column, len(c.names))
	for i, name := range c.names {
		col, err := table.ColumnFromValues(name, c.cols[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return table.New(cols...)
}

// Read decodes every record in r.
func Read(r io.Reader, opt Options) (*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	c := &collector{index: map[string]int{}}

	tok, err := dec.Token()
	if err == io.EOF {
		return c.table()
	}
	if err != nil {
		return nil, fmt.Errorf("json parser: %w", err)
	}

	switch tok {
	case json.Delim('['):
		if !opt.AllowArrays {
			return nil, fmt.Errorf("json parser: top-level array encountered but allow_arrays=false")
		}
		for i := 0; dec.More(); i++ {
			t, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json parser: element %d: %w", i, err)
			}
			if t != json.Delim('{') {
				return nil, fmt.Errorf("json parser: element %d in array is not an object", i)
			}
			rec, err := readObject(dec)
			if err != nil {
				return nil, fmt.Errorf("json parser: element %d: %w", i, err)
			}
			c.add(rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("json parser: closing array: %w", err)
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, fmt.Errorf("json parser: trailing data after top-level array")
		}

	case json.Delim('{'):
		for n := 0; ; n++ {
			rec, err := readObject(dec)
			if err != nil {
				return nil, fmt.Errorf("json parser: record %d: %w", n, err)
			}
			c.add(rec)

			t, err := dec.Token()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("json parser: record %d: %w", n+1, err)
			}
			if t != json.Delim('{') {
				return nil, fmt.Errorf("json parser: record %d is not an object", n+1)
			}
		}

	default:
		return nil, fmt.Errorf("json parser: unsupported top-level JSON value %v", tok)
	}
	return c.table()
}

// readObject reads the members of an object whose '{' was already consumed,
// through the closing '}'. A repeated key keeps its last value.
func readObject(dec *json.Decoder) ([]field, error) {
	var rec []field
	pos := map[string]int{}
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", t)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		v, err := value(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if i, dup := pos[key]; dup {
			rec[i].value = v
			continue
		}
		pos[key] = len(rec)
		rec = append(rec, field{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func value(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.String(), nil
	}
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
