package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "target.url",
// "checks[1].options.column").
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	knownParsers = map[string]struct{}{
		"":        {},
		"csv":     {},
		"json":    {},
		"parquet": {},
		"arrow":   {},
	}
	knownFormats = map[string]struct{}{
		"":        {},
		"parquet": {},
		"arrow":   {},
		"ipc":     {},
		"feather": {},
	}
	knownCompressions = map[string]struct{}{
		"":             {},
		"snappy":       {},
		"zstd":         {},
		"gzip":         {},
		"none":         {},
		"uncompressed": {},
	}
	// CheckKinds lists the built-in quality rule kinds and the option each
	// requires ("" when none).
	CheckKinds = map[string]string{
		"min_rows":       "min",
		"non_empty":      "",
		"not_null":       "column",
		"positive":       "column",
		"unique":         "columns",
		"allowed_values": "values",
	}
)

// SourceKind returns the effective kind of s: the explicit Kind, or the kind
// implied by which block is filled in.
func (s Source) SourceKind() string {
	switch {
	case s.Kind != "":
		return strings.ToLower(s.Kind)
	case s.SQL.Query != "" || s.SQL.Conn != "" || s.SQL.DSN != "":
		return "sql"
	case s.Object.URL != "":
		return "object"
	}
	return "file"
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and logs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser, p.Source)...)
	issues = append(issues, validateTarget(p.Target)...)
	issues = append(issues, validateCatalog(p.Catalog)...)
	issues = append(issues, validateChecks(p.Checks)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.SourceKind() {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "sql":
		if strings.TrimSpace(s.SQL.Query) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.sql.query",
				Message:  "sql source requires a query",
			})
		}
		hasConn := strings.TrimSpace(s.SQL.Conn) != ""
		hasPair := s.SQL.Driver != "" && s.SQL.DSN != ""
		if !hasConn && !hasPair {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.sql.conn",
				Message:  "sql source requires conn or both driver and dsn",
			})
		}
	case "object":
		if strings.TrimSpace(s.Object.URL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.object.url",
				Message:  "object source requires a url",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; want file, sql or object", s.Kind),
		})
	}

	return issues
}

func validateParser(p Parser, s Source) []Issue {
	var issues []Issue

	kind := strings.ToLower(p.Kind)
	if _, ok := knownParsers[kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q", p.Kind),
		})
		return issues
	}
	if kind != "" && s.SourceKind() == "sql" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.kind",
			Message:  "parser is ignored for sql sources",
		})
	}

	switch kind {
	case "csv":
		if c := p.Options.String("comma", ""); c != "" && len([]rune(c)) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.comma",
				Message:  fmt.Sprintf("comma must be a single character, got %q", c),
			})
		}
	}

	return issues
}

func validateTarget(t Target) []Issue {
	var issues []Issue

	if strings.TrimSpace(t.URL) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "target.url",
			Message:  "target.url must not be empty",
		})
	}
	if _, ok := knownFormats[strings.ToLower(t.Format)]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "target.format",
			Message:  fmt.Sprintf("unknown output format %q; want parquet or arrow", t.Format),
		})
	}
	if _, ok := knownCompressions[strings.ToLower(t.Compression)]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "target.compression",
			Message:  fmt.Sprintf("unknown compression %q", t.Compression),
		})
	}

	seen := make(map[string]struct{}, len(t.PartitionBy))
	for i, k := range t.PartitionBy {
		path := fmt.Sprintf("target.partition_by[%d]", i)
		if strings.TrimSpace(k) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "partition key must not be empty",
			})
			continue
		}
		if _, dup := seen[k]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("partition key %q listed twice", k),
			})
		}
		seen[k] = struct{}{}
	}

	return issues
}

func validateCatalog(c Catalog) []Issue {
	var issues []Issue
	if c.Crawler == "" {
		return issues
	}
	if c.Role == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog.role",
			Message:  "crawler requires an IAM role",
		})
	}
	if c.Database == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog.database",
			Message:  "crawler requires a catalog database",
		})
	}
	return issues
}

func validateChecks(cs []Check) []Issue {
	var issues []Issue

	names := make(map[string]struct{}, len(cs))
	for i, c := range cs {
		if strings.TrimSpace(c.Name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("checks[%d].name", i),
				Message:  "check name must not be empty",
			})
		} else if _, dup := names[c.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("checks[%d].name", i),
				Message:  fmt.Sprintf("duplicate check name %q", c.Name),
			})
		}
		names[c.Name] = struct{}{}

		required, ok := CheckKinds[c.Kind]
		if !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("checks[%d].kind", i),
				Message:  fmt.Sprintf("unknown check kind %q", c.Kind),
			})
			continue
		}
		if required != "" && c.Options.Any(required) == nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("checks[%d].options.%s", i, required),
				Message:  fmt.Sprintf("%s check requires option %q", c.Kind, required),
			})
		}
		if c.Kind == "allowed_values" && c.Options.String("column", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("checks[%d].options.column", i),
				Message:  "allowed_values check requires option \"column\"",
			})
		}
	}

	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue

	if r.WriterWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.writer_workers",
			Message:  "writer_workers must not be negative",
		})
	}

	return issues
}
