// Package config defines the JSON-serializable pipeline model for datalake
// ingestion jobs. A pipeline file names a source, how to parse it, where the
// partitioned columnar output goes, which quality checks to run, and how the
// data lake catalog should pick it up.
//
// Decoding uses the standard library; the Options helper gives typed access
// to the free-form option bags of parsers and checks.
//
// Example (trimmed):
//
//	{
//	  "job":     "sales-daily",
//	  "source":  { "kind": "file", "file": { "path": "data/sales.csv" } },
//	  "parser":  { "kind": "csv", "options": { "comma": ";" } },
//	  "target":  { "url": "s3://lake/raw/sales", "partition_by": ["year", "month"] },
//	  "checks":  [ { "name": "has_rows", "kind": "min_rows", "options": { "min": 1 } } ],
//	  "runtime": { "writer_workers": 4 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it labels metrics and log lines.
	Job string `json:"job"`

	Source  Source  `json:"source"`
	Parser  Parser  `json:"parser"`
	Target  Target  `json:"target"`
	Catalog Catalog `json:"catalog"`
	Checks  []Check `json:"checks"`
	Runtime Runtime `json:"runtime"`
}

// Runtime controls write concurrency and check strictness.
type Runtime struct {
	// WriterWorkers bounds concurrent partition writes. 0 means 1.
	WriterWorkers int `json:"writer_workers"`
	// FailOnCheck turns a check evaluating to false into a failed run.
	FailOnCheck bool `json:"fail_on_check"`
}

// Source identifies the data source.
type Source struct {
	// Kind is "file", "sql" or "object". When empty it is inferred from
	// whichever block is filled in.
	Kind string `json:"kind"`

	File   SourceFile   `json:"file"`
	SQL    SourceSQL    `json:"sql"`
	Object SourceObject `json:"object"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path"`
}

// SourceSQL holds configuration for the "sql" source kind. Either Conn or a
// Driver+DSN pair must be set.
type SourceSQL struct {
	// Conn is a URL-style connection string (postgres://, mysql://,
	// sqlserver://, sqlite://).
	Conn   string `json:"conn"`
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
	Query  string `json:"query"`
}

// SourceObject holds configuration for reading back columnar objects.
type SourceObject struct {
	URL string `json:"url"`
}

// Parser selects how file bytes become a table: "csv", "json", "parquet" or
// "arrow". Empty means "infer from the file extension".
type Parser struct {
	Kind string `json:"kind"`

	// Options is interpreted by the parser. CSV keys: comma (string),
	// trim_space (bool), normalize_headers (bool), header_map (object).
	// JSON keys: allow_arrays (bool).
	Options Options `json:"options"`
}

// Target describes where partitioned objects are written.
type Target struct {
	// URL is s3://bucket/prefix, file:///dir or a plain local directory.
	URL         string   `json:"url"`
	PartitionBy []string `json:"partition_by"`
	// Format is "parquet" (default) or "arrow".
	Format string `json:"format"`
	// Compression applies to parquet: snappy (default), zstd, gzip, none.
	Compression string   `json:"compression"`
	S3          TargetS3 `json:"s3"`
}

// TargetS3 carries S3 session settings. Empty values fall back to the AWS
// SDK's environment and shared config.
type TargetS3 struct {
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	PathStyle bool   `json:"path_style"`
}

// Catalog configures the Glue crawler that registers written data.
type Catalog struct {
	Crawler     string `json:"crawler"`
	Role        string `json:"role"`
	Database    string `json:"database"`
	Schedule    string `json:"schedule"`
	TablePrefix string `json:"table_prefix"`
}

// Check is one named quality rule.
type Check struct {
	Name string `json:"name"`
	// Kind selects a built-in rule (min_rows, non_empty, not_null, positive,
	// unique, allowed_values).
	Kind    string  `json:"kind"`
	Options Options `json:"options"`
}

// DefaultJob names pipelines that do not set "job".
const DefaultJob = "datalake"

// Load reads and decodes a pipeline file. Unknown fields are rejected and an
// empty job becomes DefaultJob.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("open pipeline: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("decode pipeline %s: %w", path, err)
	}
	if strings.TrimSpace(p.Job) == "" {
		p.Job = DefaultJob
	}
	return p, nil
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns the provided default
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json decodes numbers as
// float64, so float64 is accepted and truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Float returns the float value for key or def.
func (o Options) Float(key string, def float64) float64 {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, s := range m {
				res[k] = s
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of
// strings. A single string is returned as a one-element slice. Returns nil
// when the key is missing.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		case string:
			return []string{vv}
		}
	}
	return nil
}

// AnySlice returns the raw array for key, or nil when missing or not an
// array.
func (o Options) AnySlice(key string) []any {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			return vv
		case []string:
			out := make([]any, len(vv))
			for i, s := range vv {
				out[i] = s
			}
			return out
		}
	}
	return nil
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to a
// non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
