// Package testutil provides shared testing utilities and helpers for apigate
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/apigate-dev/apigate/pkg/logging"
)

// RecordedRequest captures one request received by a RecordingServer.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   map[string][]string
	Headers http.Header
	Body    []byte
}

// RecordingServer is an httptest server that records every request and
// replies with a configurable canned response.
type RecordingServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest

	// Response configuration for subsequent requests
	Status      int
	ContentType string
	Body        string
}

// NewRecordingServer creates a recording server replying 200 with an
// empty JSON object until reconfigured.
func NewRecordingServer() *RecordingServer {
	rs := &RecordingServer{
		Status:      http.StatusOK,
		ContentType: "application/json",
		Body:        "{}",
	}

	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		rs.mu.Lock()
		rs.requests = append(rs.requests, RecordedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.Query(),
			Headers: r.Header.Clone(),
			Body:    body,
		})
		status := rs.Status
		contentType := rs.ContentType
		respBody := rs.Body
		rs.mu.Unlock()

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		io.WriteString(w, respBody)
	}))

	return rs
}

// Respond reconfigures the canned response for subsequent requests.
func (rs *RecordingServer) Respond(status int, contentType, body string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.Status = status
	rs.ContentType = contentType
	rs.Body = body
}

// Requests returns a copy of the recorded requests.
func (rs *RecordingServer) Requests() []RecordedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]RecordedRequest, len(rs.requests))
	copy(out, rs.requests)
	return out
}

// LastRequest returns the most recent recorded request, or nil.
func (rs *RecordingServer) LastRequest() *RecordedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.requests) == 0 {
		return nil
	}
	req := rs.requests[len(rs.requests)-1]
	return &req
}

// NewStaticServer creates an httptest server that always replies with
// the given status, content type and body.
func NewStaticServer(status int, contentType, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
}

// CaptureLogger is a logger whose JSON output can be inspected by tests.
type CaptureLogger struct {
	*logging.Logger

	buf *bytes.Buffer
	mu  sync.Mutex
}

// NewCaptureLogger creates a debug-level logger backed by a buffer.
func NewCaptureLogger() *CaptureLogger {
	cl := &CaptureLogger{buf: &bytes.Buffer{}}
	cl.Logger = logging.NewTestLogger(&lockedWriter{cl: cl})
	return cl
}

type lockedWriter struct {
	cl *CaptureLogger
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.cl.mu.Lock()
	defer w.cl.mu.Unlock()
	return w.cl.buf.Write(p)
}

// Entries decodes and returns the captured log entries.
func (cl *CaptureLogger) Entries() []logging.LogEntry {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	var entries []logging.LogEntry
	dec := json.NewDecoder(bytes.NewReader(cl.buf.Bytes()))
	for {
		var entry logging.LogEntry
		if err := dec.Decode(&entry); err != nil {
			break
		}
		entries = append(entries, entry)
	}
	return entries
}

// Contains reports whether any captured entry message contains substr.
func (cl *CaptureLogger) Contains(substr string) bool {
	for _, entry := range cl.Entries() {
		if bytes.Contains([]byte(entry.Message), []byte(substr)) {
			return true
		}
	}
	return false
}
