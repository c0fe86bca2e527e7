// Package golaperr defines the single error sum type used across the
// planner, optimizer, and physical operators.
package golaperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates the category of a golap error.
type Kind int

const (
	// General covers planning failures: unknown identifier, unknown table,
	// unknown function, no common supertype.
	General Kind = iota
	// ExecutionError covers failures raised while compiling or running the
	// physical operator tree.
	ExecutionError
	// NotImplemented marks a documented unimplemented variant (e.g. Sort
	// execution, HAVING, an unsupported CAST target type).
	NotImplemented
	// Parse wraps an upstream SQL parser failure.
	Parse
	// IO wraps an upstream filesystem/data-source failure.
	IO
)

func (k Kind) String() string {
	switch k {
	case General:
		return "General"
	case ExecutionError:
		return "ExecutionError"
	case NotImplemented:
		return "NotImplemented"
	case Parse:
		return "Parse"
	case IO:
		return "IO"
	default:
		return "Unknown"
	}
}

// Error is the single error sum type returned by every fallible operation
// in this module.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the wrapped upstream error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Newf builds a new golaperr.Error with a formatted message and no wrapped
// cause.
func Newf(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// Wrap attaches msg and kind to an upstream error, preserving it for
// errors.Unwrap/errors.Cause.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, Msg: msg, Err: err})
}

// Is reports whether err is a golap error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
