// Package errs defines the error kinds shared by the ingestion components.
//
// Components return *Error values so callers can branch on Kind instead of
// parsing messages. The wrapped cause stays reachable through errors.Is/As
// (e.g. errors.Is(err, os.ErrNotExist) on a ReadError for a missing file).
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindRead: the source was unreachable, missing, or malformed.
	KindRead Kind = "read_error"
	// KindEncode: the table could not be serialized to a columnar format.
	KindEncode Kind = "encode_error"
	// KindWrite: the object store rejected the write or the transport failed.
	KindWrite Kind = "write_error"
	// KindInvalidPartitionValue: a key value cannot be used as a path segment.
	KindInvalidPartitionValue Kind = "invalid_partition_value"
	// KindInvalidPartitionKey: a partition key is not a column of the table.
	KindInvalidPartitionKey Kind = "invalid_partition_key"
	// KindRuleEvaluation: a quality rule failed to evaluate.
	KindRuleEvaluation Kind = "rule_evaluation_error"
	// KindQualityCheckFailed: a quality rule evaluated to false and the
	// caller asked for that to be fatal.
	KindQualityCheckFailed Kind = "quality_check_failed"
	// KindTransform: the caller's transformation rejected or failed on the table.
	KindTransform Kind = "transform_error"
	// KindConfig: invalid arguments or configuration.
	KindConfig Kind = "config_error"
)

// Error is a failure tagged with a Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error. If err already carries a Kind, that kind is kept and
// only the operation context is added.
func E(kind Kind, op string, err error) error {
	var existing *Error
	if errors.As(err, &existing) {
		kind = existing.Kind
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is shorthand for E(kind, op, fmt.Errorf(format, args...)).
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
