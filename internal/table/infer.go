package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// InferTextType picks the narrowest type every non-empty cell parses as:
// Int64, then Float64, then Bool, else String. Empty cells are nulls and do
// not take part; an all-null column is String.
func InferTextType(cells []string) Type {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, s := range cells {
		if s == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(s); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return String
		}
	}
	switch {
	case !seen:
		return String
	case isInt:
		return Int64
	case isFloat:
		return Float64
	case isBool:
		return Bool
	default:
		return String
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// ParseText converts a text cell to a value of typ. The empty string is null.
func ParseText(typ Type, s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	switch typ {
	case String:
		return s, nil
	case Int64:
		return strconv.ParseInt(s, 10, 64)
	case Float64:
		return strconv.ParseFloat(s, 64)
	case Bool:
		b, ok := parseBool(s)
		if !ok {
			return nil, fmt.Errorf("invalid bool %q", s)
		}
		return b, nil
	case Timestamp:
		return parseTime(s)
	}
	return nil, fmt.Errorf("unsupported type %s", typ)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ColumnFromText infers the column type from the cells and converts them.
func ColumnFromText(name string, cells []string) (*Column, error) {
	typ := InferTextType(cells)
	values := make([]any, len(cells))
	for i, s := range cells {
		v, err := ParseText(typ, s)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		values[i] = v
	}
	return NewColumn(name, typ, values)
}

// normalize maps driver and decoder values onto the column value domain.
// []byte becomes string, every integer kind int64, float32 float64.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return v
	}
}

// InferValueType picks a column type for already-typed values.
func InferValueType(values []any) Type {
	var typ Type
	seen := false
	for _, v := range values {
		if v == nil {
			continue
		}
		vt, ok := typeOf(v)
		if !ok {
			return String
		}
		if !seen {
			typ, seen = vt, true
			continue
		}
		if vt == typ {
			continue
		}
		if (vt == Int64 && typ == Float64) || (vt == Float64 && typ == Int64) {
			typ = Float64
			continue
		}
		return String
	}
	return typ
}

func typeOf(v any) (Type, bool) {
	switch v.(type) {
	case string:
		return String, true
	case int64:
		return Int64, true
	case float64:
		return Float64, true
	case bool:
		return Bool, true
	case time.Time:
		return Timestamp, true
	}
	return String, false
}

// ColumnFromValues normalizes values, infers their type and converts them.
func ColumnFromValues(name string, values []any) (*Column, error) {
	norm := make([]any, len(values))
	for i, v := range values {
		norm[i] = normalize(v)
	}
	return ColumnOf(name, InferValueType(norm), norm)
}

// ColumnOf converts values to typ. Strings are parsed when typ is not
// String; numbers widen to Float64; anything else becomes its fmt text in a
// String column.
func ColumnOf(name string, typ Type, values []any) (*Column, error) {
	out := make([]any, len(values))
	for i, raw := range values {
		v, err := Coerce(typ, normalize(raw))
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = v
	}
	return NewColumn(name, typ, out)
}

// Coerce converts a normalized value to typ.
func Coerce(typ Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && typ != String {
		return ParseText(typ, s)
	}
	switch typ {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		if ts, ok := v.(time.Time); ok {
			return ts.UTC().Format(time.RFC3339Nano), nil
		}
		return fmt.Sprint(v), nil
	case Float64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		}
	case Int64:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case Bool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		}
	case Timestamp:
		if ts, ok := v.(time.Time); ok {
			return ts.UTC(), nil
		}
	}
	return nil, fmt.Errorf("cannot convert %v (%T) to %s", v, v, typ)
}

// TypeFromDatabaseName maps a SQL column type name reported by a driver to a
// column type. ok is false when the name is empty or not recognized.
func TypeFromDatabaseName(name string) (Type, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(n, '('); i >= 0 {
		n = n[:i]
	}
	n = strings.TrimPrefix(n, "UNSIGNED ")
	switch n {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT",
		"INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL", "YEAR":
		return Int64, true
	case "FLOAT", "DOUBLE", "REAL", "FLOAT4", "FLOAT8", "DECIMAL", "NUMERIC",
		"MONEY", "SMALLMONEY", "DOUBLE PRECISION":
		return Float64, true
	case "BOOL", "BOOLEAN", "BIT":
		return Bool, true
	case "DATE", "DATETIME", "DATETIME2", "SMALLDATETIME", "DATETIMEOFFSET",
		"TIMESTAMP", "TIMESTAMPTZ":
		return Timestamp, true
	case "TEXT", "VARCHAR", "CHAR", "NVARCHAR", "NCHAR", "NTEXT", "BPCHAR",
		"UUID", "UNIQUEIDENTIFIER", "JSON", "JSONB", "CLOB", "STRING":
		return String, true
	}
	return String, false
}
