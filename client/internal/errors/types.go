// Package errors classifies transport failures so callers and the async
// mutation queue can tell a transient server problem from a request the
// server will keep rejecting.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory decides whether a failed call may be attempted again.
type ErrorCategory int

const (
	// Recoverable failures are transient: 408, 429, 5xx and network errors.
	Recoverable ErrorCategory = iota

	// Irrecoverable failures repeat on every attempt: validation, auth,
	// missing records and version conflicts.
	Irrecoverable
)

// String returns the category name.
func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// APIError is the error document the management API returns:
// {"sys":{"type":"Error","id":"VersionMismatch"},"message":"...","requestId":"..."}.
type APIError struct {
	Sys struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"sys"`
	Message   string         `json:"message"`
	RequestID string         `json:"requestId"`
	Details   map[string]any `json:"details,omitempty"`
}

// ClassifiedError is a failed API call with its category and, when the
// server sent one, the parsed error document.
type ClassifiedError struct {
	Category   ErrorCategory
	Method     string
	Path       string
	StatusCode int       // 0 for network errors
	API        *APIError // nil when the body was not an error document
	Body       string
	Underlying error
}

// Error implements error.
func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		if e.API != nil && e.API.Sys.ID != "" {
			return fmt.Sprintf("[%s] HTTP %d %s: %v", e.Category, e.StatusCode, e.API.Sys.ID, e.Underlying)
		}
		return fmt.Sprintf("[%s] HTTP %d: %v", e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("[%s] %v", e.Category, e.Underlying)
}

// Unwrap returns the underlying error.
func (e *ClassifiedError) Unwrap() error {
	return e.Underlying
}

// ErrorID returns the server's error id (e.g. "NotFound"), or "".
func (e *ClassifiedError) ErrorID() string {
	if e.API == nil {
		return ""
	}
	return e.API.Sys.ID
}

// IsIrrecoverable reports whether err should not be attempted again.
func IsIrrecoverable(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Category == Irrecoverable
	}
	return false
}

// IsVersionConflict reports whether the server rejected a mutation because
// the X-Contentful-Version header did not match the stored version.
func IsVersionConflict(err error) bool {
	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.StatusCode == http.StatusConflict || ce.ErrorID() == "VersionMismatch"
}

// IsNotFound reports whether the server answered 404.
func IsNotFound(err error) bool {
	var ce *ClassifiedError
	return errors.As(err, &ce) && ce.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}
