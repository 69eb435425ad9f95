// Package ancerr defines the error kinds used throughout ancinfer.
//
// Errors are tagged with one of the five kinds below so that cmd/ancinfer
// can pick the right exit behavior (immediate descriptive message vs.
// abort-with-diagnostics) without re-inspecting error strings. Not every
// error is tagged: packages such as fb, params and genome return plain
// errors, and an untagged error that reaches cmd/ancinfer gets exit code 1.
package ancerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error for exit-code and diagnostic purposes.
type Kind int

const (
	// MalformedInput covers VCF/model/map syntax errors.
	MalformedInput Kind = iota
	// InconsistentInput covers cross-file disagreements, e.g. a model
	// file whose ancestry count differs from the reference panels'.
	InconsistentInput
	// InsufficientData covers A<2, zero study samples after filtering,
	// or zero markers after filtering.
	InsufficientData
	// NumericFailure covers non-finite posteriors or probabilities that
	// don't sum to 1 within tolerance: a bug, not a user error.
	NumericFailure
	// IO covers unreadable or unwritable files.
	IO
)

func (k Kind) String() string {
	switch k {
	case MalformedInput:
		return "malformed input"
	case InconsistentInput:
		return "inconsistent input"
	case InsufficientData:
		return "insufficient data"
	case NumericFailure:
		return "numeric failure"
	case IO:
		return "I/O error"
	default:
		return "error"
	}
}

// Error is a Kind-tagged, cause-chain-carrying error.
type Error struct {
	Kind Kind
	msg  string
	wrap error
}

func (e *Error) Error() string {
	if e.wrap != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.msg, e.wrap)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.wrap }

// New creates a Kind-tagged error with a formatted message.
func New(k Kind, format string, args ...interface{}) error {
	return &Error{Kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and a message to an existing error, preserving a
// stack trace on the cause the way grailbio-style code does with
// github.com/pkg/errors.
func Wrap(k Kind, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: k, msg: fmt.Sprintf(format, args...), wrap: errors.WithStack(cause)}
}

// Is reports whether the first *Error found in err's chain (err itself, or
// a cause reached through Unwrap) has the given Kind. That outermost *Error
// decides the result; an *Error it wraps is not consulted.
func Is(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == k
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
