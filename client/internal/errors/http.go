package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClassifyHTTPError builds the error for a non-2xx response to method path.
// A body that parses as an API error document is kept in API; the raw body
// is always kept for debugging.
func ClassifyHTTPError(method, path string, statusCode int, body []byte) *ClassifiedError {
	ce := &ClassifiedError{
		Category:   getHTTPErrorCategory(statusCode),
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Body:       string(body),
	}

	var doc APIError
	if err := json.Unmarshal(body, &doc); err == nil && doc.Sys.Type == "Error" {
		ce.API = &doc
	}

	msg := fmt.Sprintf("%s %s failed", method, path)
	if ce.API != nil && ce.API.Message != "" {
		msg += ": " + ce.API.Message
	} else if b := strings.TrimSpace(ce.Body); b != "" && len(b) <= 200 {
		msg += ": " + b
	}
	ce.Underlying = fmt.Errorf("%s", msg)
	return ce
}

// getHTTPErrorCategory maps a status code to a category. 408 and 429 are the
// only retryable 4xx codes; unexpected codes count as recoverable.
func getHTTPErrorCategory(statusCode int) ErrorCategory {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case 408, 429:
			return Recoverable
		default:
			return Irrecoverable
		}
	case statusCode >= 500 && statusCode < 600:
		return Recoverable
	default:
		return Recoverable
	}
}

// NewNetworkError wraps a failure that produced no HTTP response.
func NewNetworkError(method, path string, err error) *ClassifiedError {
	return &ClassifiedError{
		Category:   Recoverable,
		Method:     method,
		Path:       path,
		Underlying: fmt.Errorf("%s %s network error: %w", method, path, err),
	}
}
