// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrSessionNotFound indicates the session store has no (unexpired) entry for an ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistence indicates a stats or log write failed.
	// The reply path logs it and carries on.
	ErrPersistence = errors.New("persistence failed")
)

// IsNotFound reports whether err wraps ErrNotFound or ErrSessionNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrSessionNotFound)
}

// IsRateLimitExceeded reports whether err wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsInvalidInput reports whether err wraps ErrInvalidInput or is a ValidationError.
func IsInvalidInput(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrInvalidInput) || errors.As(err, &ve)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// PatternError reports a match pattern that failed to compile.
// The classifier skips the pattern and keeps the rest of the rule.
type PatternError struct {
	Rule    string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q in rule %s: %v", e.Pattern, e.Rule, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// NewPatternError creates a new pattern error.
func NewPatternError(rule, pattern string, err error) *PatternError {
	return &PatternError{
		Rule:    rule,
		Pattern: pattern,
		Err:     err,
	}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Join wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
