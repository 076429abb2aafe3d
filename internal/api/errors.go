package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a handled backend response with a non-2xx status. Transport
// failures (no response received) are never an *Error; they surface as
// wrapped net/http errors, which lets callers tell "the backend said no"
// apart from "the backend never answered".
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("backend: status %d", e.Status)
}

// IsAuthInvalid reports whether err is a backend rejection of the
// presented credential. Only this class of failure may destroy a session.
func IsAuthInvalid(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// IsServerError reports whether err is a backend-side failure (5xx),
// presumed transient.
func IsServerError(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status >= 500
}

// IsNetwork reports whether err happened before any backend response was
// received.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	return !errors.As(err, &apiErr)
}

// UserMessage extracts the backend-supplied message from err, falling
// back to a generic one for transport failures.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Something went wrong. Please try again."
}
