package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in failure envelopes.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimit    = "RATE_LIMIT"
	CodeInternal     = "INTERNAL_ERROR"
)

// Error is a classified failure reported by a backend.
type Error struct {
	// Status is the HTTP-style status code (400, 401, 404, 409, 429, 500).
	Status  int
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Code, e.Status)
	}
	return e.Message
}

// NewError creates an Error.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Validation reports bad input. field may be empty.
func Validation(message, field string) *Error {
	e := NewError(http.StatusBadRequest, CodeValidation, message)
	if field != "" {
		e.Details = map[string]string{"field": field}
	}
	return e
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized() *Error {
	return NewError(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
}

// NotFound reports a missing resource, e.g. NotFound("List").
func NotFound(resource string) *Error {
	return NewError(http.StatusNotFound, CodeNotFound, resource+" not found")
}

// Conflict reports a state conflict.
func Conflict(message string) *Error {
	return NewError(http.StatusConflict, CodeConflict, message)
}

// RateLimited reports throttling.
func RateLimited() *Error {
	return NewError(http.StatusTooManyRequests, CodeRateLimit, "Too many requests")
}

// Internal reports an unexpected backend failure.
func Internal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return NewError(http.StatusInternalServerError, CodeInternal, message)
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the status carried by err, or 500 for unclassified errors.
func StatusOf(err error) int {
	if e, ok := AsError(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code carried by err, or "" for unclassified errors.
func CodeOf(err error) string {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsRateLimited reports whether err is a rate-limit failure.
func IsRateLimited(err error) bool { return CodeOf(err) == CodeRateLimit }

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool { return CodeOf(err) == CodeUnauthorized }

// Message extracts a user-facing message from err. Classified errors yield
// their message; anything else yields err.Error(). fallback is used when
// both are empty.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok && e.Message != "" {
		return e.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
