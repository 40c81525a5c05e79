// Package errors provides error wrapping utilities for consistent error handling.
package errors

import (
	"fmt"
)

// ErrorWrapper provides context-aware error wrapping.
type ErrorWrapper struct {
	operation string
	module    string
}

// NewWrapper creates a new error wrapper with operation and module context.
func NewWrapper(module, operation string) *ErrorWrapper {
	return &ErrorWrapper{
		module:    module,
		operation: operation,
	}
}

// Wrap wraps an error with operation context.
// Returns nil if err is nil.
func (w *ErrorWrapper) Wrap(err error, detail string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation: w.operation,
		Module:    w.module,
		Cause:     err,
		Detail:    detail,
	}
}

// Wrapf wraps an error with formatted detail.
func (w *ErrorWrapper) Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation: w.operation,
		Module:    w.module,
		Cause:     err,
		Detail:    fmt.Sprintf(format, args...),
	}
}

// WrappedError records where an error happened.
type WrappedError struct {
	Operation string // e.g. "record_turn", "export_log"
	Module    string // e.g. "storage", "session"
	Cause     error
	Detail    string
}

func (e *WrappedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%s:%s] %v", e.Module, e.Operation, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %v", e.Module, e.Operation, e.Detail, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// Operation returns "module:operation" for a WrappedError, or "unknown".
func Operation(err error) string {
	var wrapped *WrappedError
	if As(err, &wrapped) {
		return wrapped.Module + ":" + wrapped.Operation
	}
	return "unknown"
}
