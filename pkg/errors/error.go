// Package errors provides structured error handling with typed error codes
// and a closed failure-kind taxonomy.
//
// Every failure crossing the exchange boundary is translated into exactly one
// Kind before any retry decision is made:
//   - KindTransient: connectivity loss, request timeouts, retry-advised rate
//     limits. Safe to retry with backoff.
//   - KindRejected: the exchange explicitly refused the request (invalid
//     symbol, insufficient funds, validation failure). Retrying cannot help.
//   - KindUnexpected: anything unclassified. Never retried, never swallowed.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters and configuration
//   - Network errors (200-299): Transient connectivity and timeout failures
//   - Exchange errors (300-399): Explicit exchange-side rejections
//   - Credential errors (400-499): Secret retrieval failures
//   - Storage errors (500-599): Signal store failures
//   - Execution errors (600-699): Signal routing and order sizing errors
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeExchangeRejected, "order refused", originalErr)
//
//	// Check error code or kind
//	if errors.HasCode(err, errors.ErrCodeRetryExhausted) { ... }
//	if errors.KindOf(err) == errors.KindTransient { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// KindOf returns the failure kind of an error. Errors that are not *Error, and
// codes without an explicit classification, are KindUnexpected: an unknown
// failure mode in a money-moving system must never be downgraded to a
// retryable or quietly-terminal outcome.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.Kind()
	}

	return KindUnexpected
}

// IsTransient reports whether the error is classified as a transient failure.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsRejected reports whether the error is an explicit exchange rejection.
func IsRejected(err error) bool {
	return KindOf(err) == KindRejected
}
