// Package types contains shared types for apigate
package types

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Response represents a normalized API response.
// For JSON responses Data holds the decoded value; for everything else
// the raw body is available through Text and Body.
type Response struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"status_code"`

	// Headers holds the response headers.
	Headers http.Header `json:"-"`

	// Body is the raw response body.
	Body []byte `json:"-"`

	// Data is the decoded JSON value when the response carried a JSON
	// content type. Nil otherwise.
	Data interface{} `json:"data,omitempty"`

	// JSON reports whether the response body was decoded as JSON.
	JSON bool `json:"json"`
}

// Text returns the raw response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Decode unmarshals the raw response body into v. It is useful when the
// caller wants a concrete struct instead of the generic Data value.
func (r *Response) Decode(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// ContentType returns the response Content-Type header without parameters.
func (r *Response) ContentType() string {
	ct := r.Headers.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// IsJSONContentType reports whether a Content-Type header value
// indicates a JSON body.
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}
