package quality

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/som4n/DataLake/internal/config"
	"github.com/som4n/DataLake/internal/table"
)

// MinRows passes when the table has at least n rows.
func MinRows(n int) Rule {
	return func(tbl *table.Table) (bool, error) {
		return tbl.NumRows() >= n, nil
	}
}

// NonEmpty passes when the table has at least one row.
func NonEmpty() Rule { return MinRows(1) }

// NotNull passes when column has no null values.
func NotNull(column string) Rule {
	return func(tbl *table.Table) (bool, error) {
		c, err := lookup(tbl, column)
		if err != nil {
			return false, err
		}
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				return false, nil
			}
		}
		return true, nil
	}
}

// Positive passes when every value of a numeric column is > 0. A null is
// not positive.
func Positive(column string) Rule {
	return func(tbl *table.Table) (bool, error) {
		c, err := lookup(tbl, column)
		if err != nil {
			return false, err
		}
		if c.Type != table.Int64 && c.Type != table.Float64 {
			return false, fmt.Errorf("column %q is %s, not numeric", column, c.Type)
		}
		for _, v := range c.Values() {
			switch x := v.(type) {
			case int64:
				if x <= 0 {
					return false, nil
				}
			case float64:
				if !(x > 0) {
					return false, nil
				}
			default:
				return false, nil
			}
		}
		return true, nil
	}
}

// Unique passes when no two rows share the same values in columns. Nulls
// compare equal to each other.
func Unique(columns ...string) Rule {
	return func(tbl *table.Table) (bool, error) {
		if len(columns) == 0 {
			return false, fmt.Errorf("unique: no columns")
		}
		cols := make([]*table.Column, len(columns))
		for i, name := range columns {
			c, err := lookup(tbl, name)
			if err != nil {
				return false, err
			}
			cols[i] = c
		}

		seen := make(map[string]struct{}, tbl.NumRows())
		var b strings.Builder
		for r := 0; r < tbl.NumRows(); r++ {
			b.Reset()
			for i, c := range cols {
				if i > 0 {
					b.WriteByte('\x1f')
				}
				v := c.Value(r)
				if v == nil {
					b.WriteByte('\x00')
					continue
				}
				b.WriteString(render(v))
			}
			k := b.String()
			if _, dup := seen[k]; dup {
				return false, nil
			}
			seen[k] = struct{}{}
		}
		return true, nil
	}
}

// AllowedValues passes when every value of column, rendered as text, is one
// of allowed. Nulls pass only when allowNull is set.
func AllowedValues(column string, allowed []string, allowNull bool) Rule {
	set := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		set[s] = struct{}{}
	}
	return func(tbl *table.Table) (bool, error) {
		c, err := lookup(tbl, column)
		if err != nil {
			return false, err
		}
		for _, v := range c.Values() {
			if v == nil {
				if !allowNull {
					return false, nil
				}
				continue
			}
			if _, ok := set[render(v)]; !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

func lookup(tbl *table.Table, column string) (*table.Column, error) {
	if tbl == nil {
		return nil, fmt.Errorf("nil table")
	}
	c, ok := tbl.Column(column)
	if !ok {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	return c, nil
}

func render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

// FromConfig builds Rules from pipeline check definitions.
func FromConfig(checks []config.Check) (Rules, error) {
	rules := make(Rules, len(checks))
	for i, c := range checks {
		if c.Name == "" {
			return nil, fmt.Errorf("checks[%d]: empty name", i)
		}
		if _, dup := rules[c.Name]; dup {
			return nil, fmt.Errorf("checks[%d]: duplicate name %q", i, c.Name)
		}
		r, err := build(c)
		if err != nil {
			return nil, fmt.Errorf("checks[%d] %s: %w", i, c.Name, err)
		}
		rules[c.Name] = r
	}
	return rules, nil
}

func build(c config.Check) (Rule, error) {
	opt := c.Options
	column := opt.String("column", "")
	needColumn := func() error {
		if column == "" {
			return fmt.Errorf("%s requires option \"column\"", c.Kind)
		}
		return nil
	}

	switch c.Kind {
	case "min_rows":
		if opt.Any("min") == nil {
			return nil, fmt.Errorf("min_rows requires option \"min\"")
		}
		return MinRows(opt.Int("min", 1)), nil
	case "non_empty":
		return NonEmpty(), nil
	case "not_null":
		if err := needColumn(); err != nil {
			return nil, err
		}
		return NotNull(column), nil
	case "positive":
		if err := needColumn(); err != nil {
			return nil, err
		}
		return Positive(column), nil
	case "unique":
		cols := opt.StringSlice("columns")
		if len(cols) == 0 {
			return nil, fmt.Errorf("unique requires option \"columns\"")
		}
		return Unique(cols...), nil
	case "allowed_values":
		if err := needColumn(); err != nil {
			return nil, err
		}
		raw := opt.AnySlice("values")
		if raw == nil {
			return nil, fmt.Errorf("allowed_values requires option \"values\"")
		}
		allowed := make([]string, len(raw))
		for i, v := range raw {
			allowed[i] = render(v)
		}
		return AllowedValues(column, allowed, opt.Bool("allow_null", false)), nil
	}
	return nil, fmt.Errorf("unknown check kind %q", c.Kind)
}
