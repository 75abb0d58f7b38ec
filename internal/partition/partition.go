// Package partition groups table rows by partition key values and derives
// the Hive-style path suffix ("year=2023/month=1") for each group.
//
// Groups are returned sorted by key value, comparing key columns left to
// right. Null key values form their own group, render as
// DefaultPartitionValue, and sort after every non-null value. Every input row
// lands in exactly one group.
package partition

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/table"
)

// DefaultPartitionValue is the path value used for null keys.
const DefaultPartitionValue = "__HIVE_DEFAULT_PARTITION__"

// Group is one partition: the key values shared by its rows, the rows
// themselves, and the path suffix built from the keys.
type Group struct {
	// Values holds one key value per partition key, in key order. A nil
	// entry is a null key.
	Values []any
	// Table holds exactly the rows whose key columns equal Values.
	Table *table.Table
	// Suffix is "k1=v1/k2=v2/..." or "" when no keys were requested.
	Suffix string
}

// Plan groups tbl by keys. With no keys it returns a single group holding the
// whole table and an empty suffix.
//
// Unknown key columns fail with errs.KindInvalidPartitionKey. Key values
// containing "/" or "=" fail with errs.KindInvalidPartitionValue.
func Plan(tbl *table.Table, keys []string) ([]Group, error) {
	if len(keys) == 0 {
		return []Group{{Table: tbl}}, nil
	}

	cols := make([]*table.Column, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for i, k := range keys {
		c, ok := tbl.Column(k)
		if !ok {
			return nil, errs.Errorf(errs.KindInvalidPartitionKey, "plan", "partition key %q is not a column", k)
		}
		if _, dup := seen[k]; dup {
			return nil, errs.Errorf(errs.KindInvalidPartitionKey, "plan", "partition key %q listed twice", k)
		}
		seen[k] = struct{}{}
		cols[i] = c
	}

	type bucket struct {
		text   []string
		values []any
		rows   []int
	}

	// Buckets are addressed by the xxh3 hash of the rendered key tuple; a
	// hash shared by different tuples chains into a small slice.
	byHash := make(map[uint64][]*bucket)
	var buckets []*bucket
	var buf bytes.Buffer

	for r := 0; r < tbl.NumRows(); r++ {
		text := make([]string, len(cols))
		buf.Reset()
		for i, c := range cols {
			s, err := Render(c.Value(r))
			if err != nil {
				return nil, errs.E(errs.KindInvalidPartitionValue, "plan", err)
			}
			if strings.ContainsAny(s, "/=") {
				return nil, errs.Errorf(errs.KindInvalidPartitionValue, "plan",
					"value %q of key %q (row %d) contains a path separator or '='", s, keys[i], r)
			}
			text[i] = s
			// a null renders to the same text as the literal string; mark it
			if c.IsNull(r) {
				buf.WriteByte(0)
			}
			buf.WriteString(s)
			buf.WriteByte(0x1f)
		}

		h := xxh3.Hash(buf.Bytes())
		var b *bucket
		for _, cand := range byHash[h] {
			if sameTuple(cand.values, cand.text, cols, r, text) {
				b = cand
				break
			}
		}
		if b == nil {
			vals := make([]any, len(cols))
			for i, c := range cols {
				vals[i] = c.Value(r)
			}
			b = &bucket{text: text, values: vals}
			byHash[h] = append(byHash[h], b)
			buckets = append(buckets, b)
		}
		b.rows = append(b.rows, r)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return lessTuple(buckets[i].values, buckets[j].values)
	})

	groups := make([]Group, len(buckets))
	for i, b := range buckets {
		groups[i] = Group{
			Values: b.values,
			Table:  tbl.Take(b.rows),
			Suffix: Suffix(keys, b.text),
		}
	}
	return groups, nil
}

func sameTuple(values []any, text []string, cols []*table.Column, r int, rowText []string) bool {
	for i, c := range cols {
		if (values[i] == nil) != c.IsNull(r) || text[i] != rowText[i] {
			return false
		}
	}
	return true
}

// Suffix joins "key=value" segments with "/".
func Suffix(keys, values []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + values[i]
	}
	return strings.Join(parts, "/")
}

// Render formats a key value for a path segment. Dates at midnight UTC
// render as YYYY-MM-DD, other timestamps as RFC 3339.
func Render(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return DefaultPartitionValue, nil
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		x = x.UTC()
		if x.Equal(x.Truncate(24 * time.Hour)) {
			return x.Format("2006-01-02"), nil
		}
		return x.Format(time.RFC3339Nano), nil
	}
	return "", errs.Errorf(errs.KindInvalidPartitionValue, "render", "unsupported key value %v (%T)", v, v)
}

func lessTuple(a, b []any) bool {
	for i := range a {
		if c := compare(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return false
}

// compare orders two values of the same column; nil sorts last.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch x := a.(type) {
	case int64:
		return cmpOrdered(x, b.(int64))
	case float64:
		return cmpOrdered(x, b.(float64))
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	return 0
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
