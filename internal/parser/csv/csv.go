// Package csv reads delimited text into a table.Table.
//
// The first row is the header. Header cells are trimmed, stripped of a UTF-8
// BOM and NFC-normalized so that visually identical names from different
// exporters compare equal. Column types are inferred from the cells (see
// table.InferTextType). Rows whose width differs from the header fail the
// whole read with an error naming the line.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/som4n/DataLake/internal/config"
	"github.com/som4n/DataLake/internal/table"
)

// Options configures the reader. The zero value reads comma-separated input
// with headers kept as written.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// TrimSpace trims leading and trailing whitespace from every cell.
	TrimSpace bool

	// NormalizeHeaders lowercases header names and replaces spaces with
	// underscores after NFC normalization.
	NormalizeHeaders bool

	// HeaderMap renames source headers. Keys are matched after BOM stripping,
	// trimming and NFC normalization.
	HeaderMap map[string]string
}

// FromConfigOptions builds Options from a pipeline parser options bag:
// comma (string), trim_space (bool), normalize_headers (bool),
// header_map (object).
func FromConfigOptions(o config.Options) Options {
	return Options{
		Comma:            o.Rune("comma", ','),
		TrimSpace:        o.Bool("trim_space", false),
		NormalizeHeaders: o.Bool("normalize_headers", false),
		HeaderMap:        o.StringMap("header_map"),
	}
}

// ErrNoHeader is returned for input without a header row.
var ErrNoHeader = errors.New("csv: no header row")

// Read parses all of r into a table.
func Read(r io.Reader, opt Options) (*table.Table, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	// width is checked below so the error can name the line
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	names, err := headerNames(header, opt)
	if err != nil {
		return nil, err
	}

	cells := make([][]string, len(names))
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(row) != len(names) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("csv line %d: expected %d fields, got %d", line, len(names), len(row))
		}
		for i, c := range row {
			if opt.TrimSpace {
				c = strings.TrimSpace(c)
			}
			cells[i] = append(cells[i], c)
		}
	}

	cols := make([]*table.Column, len(names))
	for i, name := range names {
		c, err := table.ColumnFromText(name, cells[i])
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return table.New(cols...)
}

func headerNames(h []string, opt Options) ([]string, error) {
	h = StripHeaderBOM(h)
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, raw := range h {
		name := norm.NFC.String(strings.TrimSpace(raw))
		if m, ok := opt.HeaderMap[name]; ok {
			name = m
		} else if opt.NormalizeHeaders {
			name = strings.ReplaceAll(strings.ToLower(name), " ", "_")
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}
		if j, dup := seen[name]; dup {
			return nil, fmt.Errorf("csv header: column %q appears at positions %d and %d", name, j, i)
		}
		seen[name] = i
		out[i] = name
	}
	return out, nil
}
