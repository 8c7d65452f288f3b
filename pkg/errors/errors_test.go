package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/apigate-dev/apigate/pkg/types"
)

func TestAPIErrorWithStatus(t *testing.T) {
	resp := &types.Response{StatusCode: http.StatusNotFound}
	err := NewHTTPError(resp)

	if err.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", err.StatusCode)
	}
	if err.Response != resp {
		t.Error("Expected raw response reference to be preserved")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("Error string should mention the status code, got %q", err.Error())
	}
}

func TestAPIErrorWithoutStatus(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewTransportError("GET", "https://api.example.com/users", cause)

	if err.StatusCode != 0 {
		t.Errorf("Transport error should have no status code, got %d", err.StatusCode)
	}
	if err.Response != nil {
		t.Error("Transport error should have no response reference")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error string should carry the cause, got %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("Transport error should unwrap to its cause")
	}
}

func TestDecodeError(t *testing.T) {
	resp := &types.Response{StatusCode: http.StatusOK}
	cause := fmt.Errorf("unexpected end of JSON input")
	err := NewDecodeError(resp, cause)

	if err.StatusCode != http.StatusOK {
		t.Errorf("Decode error should keep the successful status, got %d", err.StatusCode)
	}
	if !strings.Contains(err.Message, "unexpected end of JSON input") {
		t.Errorf("Expected decode cause in message, got %q", err.Message)
	}
}

func TestConfigErrorIsDistinct(t *testing.T) {
	err := NewConfigError("base URL must be provided")

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		t.Error("ConfigError must not be an APIError")
	}
	if !strings.Contains(err.Error(), "config error") {
		t.Errorf("Unexpected config error string: %q", err.Error())
	}
}

func TestAsAPIError(t *testing.T) {
	inner := NewHTTPError(&types.Response{StatusCode: http.StatusBadGateway})
	wrapped := fmt.Errorf("call failed: %w", inner)

	apiErr, ok := AsAPIError(wrapped)
	if !ok {
		t.Fatal("AsAPIError should find the wrapped APIError")
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", apiErr.StatusCode)
	}

	if _, ok := AsAPIError(fmt.Errorf("plain error")); ok {
		t.Error("AsAPIError should not match a plain error")
	}
}
