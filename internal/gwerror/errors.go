// Package gwerror defines the gateway's error taxonomy. Every expected
// failure condition carries a stable code and an HTTP status so that the
// terminal handler can serialize it into the uniform response envelope.
package gwerror

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to clients.
const (
	CodeAuthMissingToken    = "AUTH_MISSING_TOKEN"
	CodeAuthInvalidToken    = "AUTH_INVALID_TOKEN"
	CodeForbidden           = "FORBIDDEN"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeBackendUnavailable  = "BACKEND_UNAVAILABLE"
	CodeBackendError        = "BACKEND_ERROR"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// Error is a classified gateway error with a stable code and HTTP status.
type Error struct {
	Code    string
	Status  int
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause attaches an underlying cause and returns the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetails attaches detail fields and returns the error.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// New creates an Error with an explicit code, status, and message.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// MissingToken reports an absent or malformed Authorization header.
func MissingToken() *Error {
	return New(CodeAuthMissingToken, http.StatusUnauthorized, "Missing or invalid Authorization header")
}

// InvalidToken reports a token that failed cryptographic verification.
func InvalidToken() *Error {
	return New(CodeAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token")
}

// Forbidden reports insufficient role or missing caller context.
func Forbidden(message string) *Error {
	if message == "" {
		message = "Forbidden"
	}
	return New(CodeForbidden, http.StatusForbidden, message)
}

// Validation reports a malformed request body or parameters.
func Validation(message string) *Error {
	if message == "" {
		message = "Validation failed"
	}
	return New(CodeValidationError, http.StatusBadRequest, message)
}

// NotFound reports a backend-reported missing resource.
func NotFound(message string) *Error {
	if message == "" {
		message = "Not found"
	}
	return New(CodeNotFound, http.StatusNotFound, message)
}

// TooManyRequests reports a rate-limit rejection.
func TooManyRequests(message string) *Error {
	if message == "" {
		message = "Too many requests"
	}
	return New(CodeTooManyRequests, http.StatusTooManyRequests, message)
}

// BackendUnavailable reports a transport-level failure talking to the upstream.
func BackendUnavailable() *Error {
	return New(CodeBackendUnavailable, http.StatusBadGateway, "Backend service unavailable")
}

// Upstream reports a domain-level failure surfaced verbatim from the backend.
// The upstream status and message pass through unchanged.
func Upstream(status int, message string) *Error {
	code := CodeBackendError
	if status == http.StatusNotFound {
		code = CodeNotFound
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return New(code, status, message)
}

// Internal reports an unexpected fault. The client sees a generic message.
func Internal() *Error {
	return New(CodeInternalServerError, http.StatusInternalServerError, "Internal server error")
}

// FromError classifies an arbitrary error. Already-classified errors pass
// through; anything else collapses to an internal server error.
func FromError(err error) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return Internal().WithCause(err)
}

// IsClassified reports whether err carries a gateway error classification.
func IsClassified(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr)
}
