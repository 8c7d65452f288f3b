// Package errors provides error types for apigate
package errors

import (
	"errors"
	"fmt"

	"github.com/apigate-dev/apigate/pkg/types"
)

// ErrClientClosed is returned by verb methods once the gateway has been
// closed.
var ErrClientClosed = errors.New("apigate: client is closed")

// APIError represents an API error. It covers three causes: a transport
// failure before any response was received (StatusCode is zero and
// Response is nil), a non-2xx HTTP status, and a JSON decode failure on
// an otherwise successful response.
type APIError struct {
	// Message is a human-readable description of the failure.
	Message string `json:"message"`

	// StatusCode is the HTTP status code, or zero when no response was
	// received.
	StatusCode int `json:"status_code,omitempty"`

	// Response references the raw normalized response when one was
	// received. It is for inspection only.
	Response *types.Response `json:"-"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewTransportError creates an APIError for a request that failed before
// a response was received. No status code is attached.
func NewTransportError(method, url string, err error) *APIError {
	return &APIError{
		Message: fmt.Sprintf("%s request to %s failed: %v", method, url, err),
		Err:     err,
	}
}

// NewHTTPError creates an APIError for a non-2xx response.
func NewHTTPError(resp *types.Response) *APIError {
	return &APIError{
		Message:    fmt.Sprintf("HTTP error: server returned status %d", resp.StatusCode),
		StatusCode: resp.StatusCode,
		Response:   resp,
	}
}

// NewDecodeError creates an APIError for a response body that could not
// be decoded as JSON. The (successful) status code is preserved.
func NewDecodeError(resp *types.Response, err error) *APIError {
	return &APIError{
		Message:    fmt.Sprintf("failed to decode JSON response: %v", err),
		StatusCode: resp.StatusCode,
		Response:   resp,
		Err:        err,
	}
}

// ConfigError represents a fatal configuration problem detected at
// construction time, before any request is attempted. It is deliberately
// distinct from APIError.
type ConfigError struct {
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Message)
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// AsAPIError extracts an *APIError from err, if present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
