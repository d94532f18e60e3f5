// Package errors provides typed error handling for the ksched scheduler.
//
// The scheduler core never returns an error except from Create (page
// exhaustion, or an invalid name, entry function or priority). Everything else is either silently absorbed (argument
// clamping, e.g. SetNice) or a fatal invariant violation (see kernel.Panicf)
// that halts rather than propagates. This package covers the legitimate
// error paths — collaborator resource exhaustion and misuse — and supports
// the standard errors.Is()/errors.As() for inspection.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrResourceExhausted indicates the page allocator has no pages left
	// (kernel.Create's allocation failure, i.e. the spec's TID_ERROR).
	ErrResourceExhausted ErrorKind = iota
	// ErrInvalidArgument indicates a collaborator was misconfigured or
	// misused, e.g. a zero-capacity page pool or an out-of-range priority.
	ErrInvalidArgument
	// ErrInternal indicates an unexpected internal condition that does
	// not rise to a fatal kernel panic but still needs surfacing.
	ErrInternal
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrResourceExhausted:
		return "resource exhausted"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// SchedulerError represents an error that occurred during a scheduler or
// collaborator operation.
type SchedulerError struct {
	// Op is the operation that failed (e.g. "create", "alloc page").
	Op string
	// Kind is the error classification.
	Kind ErrorKind
	// Detail provides additional context about the error.
	Detail string
	// Err is the underlying error, if any.
	Err error
}

// Error returns the error message.
func (e *SchedulerError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := ""
	if e.Op != "" {
		msg = fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SchedulerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target. It matches if the
// target is a *SchedulerError with the same Kind.
func (e *SchedulerError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*SchedulerError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new SchedulerError with the given kind.
func New(kind ErrorKind, op, detail string) *SchedulerError {
	return &SchedulerError{Op: op, Kind: kind, Detail: detail}
}

// Wrap wraps an error with operation context.
func Wrap(err error, kind ErrorKind, op string) *SchedulerError {
	return &SchedulerError{Op: op, Kind: kind, Err: err}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind ErrorKind, op, detail string) *SchedulerError {
	return &SchedulerError{Op: op, Kind: kind, Detail: detail, Err: err}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind ErrorKind) bool {
	var serr *SchedulerError
	if errors.As(err, &serr) {
		return serr.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is a SchedulerError.
func GetKind(err error) (ErrorKind, bool) {
	var serr *SchedulerError
	if errors.As(err, &serr) {
		return serr.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
