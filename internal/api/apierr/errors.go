// Package apierr defines the error taxonomy shared by the RPC and REST
// surfaces. Every handler failure maps to one of these before it
// reaches a client.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an API error carrying the HTTP-equivalent status code.
// Permission and validation failures are produced before any write, so
// returning one never leaves partial side effects.
type Error struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// NewValidationError reports missing or malformed input (400)
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NewAuthError reports a missing session (401)
func NewAuthError(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// NewForbiddenError reports a permission or ownership failure (403)
func NewForbiddenError(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

// NewNotFoundError reports an absent entity (404)
func NewNotFoundError(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewInternalError reports an unexpected failure (500). The underlying
// error is logged at the dispatch layer, never sent to the client.
func NewInternalError() *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "internal error"}
}

// StatusOf extracts the HTTP status from an error, 500 for unknown ones
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf extracts the client-safe message from an error
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "internal error"
}
