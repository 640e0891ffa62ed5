// Package errs gives the error-handling taxonomy a typed shape so callers
// use errors.Is/errors.As instead of matching on message substrings.
package errs

import "fmt"

// Kind names one of the five error categories the system distinguishes.
type Kind string

const (
	// Transient is a recoverable external failure (timeout, 5xx, malformed
	// payload). Callers log-and-skip at the narrowest scope and continue
	// with partial results.
	Transient Kind = "transient-external"
	// LogicalSkip is a deliberate gate rejection, not a failure.
	LogicalSkip Kind = "logical-skip"
	// ConfigMissing means a required credential or endpoint is absent.
	ConfigMissing Kind = "config-missing"
	// InvariantViolation is a data shape the caller must never have produced.
	InvariantViolation Kind = "invariant-violation"
	// Fatal may only be raised during startup.
	Fatal Kind = "fatal-process"
)

// E wraps an underlying error with its taxonomy kind and an optional
// machine-readable code (used by the pipeline's SKIP reasons).
type E struct {
	Kind Kind
	Code string
	Err  error
}

func (e *E) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
}

func (e *E) Unwrap() error { return e.Err }

func New(kind Kind, code string, err error) *E {
	return &E{Kind: kind, Code: code, Err: err}
}

func Skip(code string) *E { return New(LogicalSkip, code, nil) }

func IsKind(err error, kind Kind) bool {
	var e *E
	if as, ok := err.(*E); ok {
		e = as
	} else {
		return false
	}
	return e.Kind == kind
}
