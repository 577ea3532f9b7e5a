// Package domainerrors defines the coded error type used across service
// boundaries. Stores return sentinel errors; services wrap them into coded
// errors here so handlers can translate outcomes without string matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable, externally visible error classification.
type Code string

const (
	// CodeValidation covers malformed or out-of-policy input. Locally
	// correctable by the caller.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeNotFound means a referenced entity is absent.
	CodeNotFound Code = "NOT_FOUND"
	// CodeUnauthorized means the actor lacks a required role.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeExternalUnavailable means a dependency was unreachable or timed
	// out. Never coerced into a business verdict; callers may retry.
	CodeExternalUnavailable Code = "EXTERNAL_SYSTEM_UNAVAILABLE"
	// CodeRateLimited signals admission throttling, independent of business
	// rules.
	CodeRateLimited Code = "RATE_LIMIT_EXCEEDED"
	// CodeServiceDegraded rejects non-critical paths while core dependencies
	// are down. Carries a retry-after hint.
	CodeServiceDegraded Code = "SERVICE_DEGRADED"
	// CodeConflict marks a state conflict (duplicate create, terminal-state
	// transition).
	CodeConflict Code = "CONFLICT"
	// CodeTimeout marks a cancelled or deadline-exceeded operation.
	CodeTimeout Code = "TIMEOUT"
	// CodeInternal is an unexpected defect.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Error is a coded error with an operator-facing message. The message for
// CodeInternal is never shown to external callers.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so unexpected defects never leak detail.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeExternalUnavailable, CodeServiceDegraded:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
