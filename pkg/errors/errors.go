// Package errors defines the launcher's error taxonomy.
//
// Every failure is tagged with a Code so callers can tell a rejected
// configuration (never launched) apart from a child-setup abort or a
// failed image replacement.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies the failure class.
type Code int

const (
	// ConfigInvalid marks invalid or contradictory configuration.
	// Surfaced before the child is started.
	ConfigInvalid Code = iota + 1
	// SetupFailed marks a failed confinement step in the child.
	// The child aborts before the target program runs.
	SetupFailed
	// ExecFailed marks a failed image replacement (target missing,
	// not executable). Same observability as SetupFailed.
	ExecFailed
	// Internal marks launcher-side failures outside the taxonomy
	// (fork failure, broken wait).
	Internal
)

func (c Code) String() string {
	switch c {
	case ConfigInvalid:
		return "invalid configuration"
	case SetupFailed:
		return "sandbox setup failed"
	case ExecFailed:
		return "exec failed"
	case Internal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// Error carries a failure class alongside the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// Wrapf attaches a code and formatted message to an existing error.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the Code from err, or Internal if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
