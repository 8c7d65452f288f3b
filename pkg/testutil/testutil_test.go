package testutil

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestRecordingServer(t *testing.T) {
	server := NewRecordingServer()
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/widgets?color=red", strings.NewReader(`{"name":"w"}`))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("X-Test", "yes")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected default status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "{}" {
		t.Errorf("Expected default body '{}', got %s", body)
	}

	last := server.LastRequest()
	if last == nil {
		t.Fatal("Expected a recorded request")
	}
	if last.Method != http.MethodPost || last.Path != "/widgets" {
		t.Errorf("Unexpected recorded request: %s %s", last.Method, last.Path)
	}
	if got := last.Query["color"]; len(got) != 1 || got[0] != "red" {
		t.Errorf("Unexpected recorded query: %v", last.Query)
	}
	if last.Headers.Get("X-Test") != "yes" {
		t.Error("Expected recorded X-Test header")
	}
	if string(last.Body) != `{"name":"w"}` {
		t.Errorf("Unexpected recorded body: %s", last.Body)
	}
}

func TestRecordingServerRespond(t *testing.T) {
	server := NewRecordingServer()
	defer server.Close()

	server.Respond(http.StatusTeapot, "text/plain", "short and stout")

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("Expected status 418, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "short and stout" {
		t.Errorf("Unexpected body: %s", body)
	}

	if len(server.Requests()) != 1 {
		t.Errorf("Expected one recorded request, got %d", len(server.Requests()))
	}
}

func TestStaticServer(t *testing.T) {
	server := NewStaticServer(http.StatusNotFound, "application/json", `{"error":"missing"}`)
	defer server.Close()

	resp, err := http.Get(server.URL + "/anything")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}
}

func TestCaptureLogger(t *testing.T) {
	logger := NewCaptureLogger()

	logger.WithComponent("client").Info("making GET request to %s", "https://api.example.com/users")
	logger.Error("request failed")

	entries := logger.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Component != "client" {
		t.Errorf("Expected component 'client', got %s", entries[0].Component)
	}
	if !logger.Contains("making GET request") {
		t.Error("Contains should find the logged message")
	}
	if logger.Contains("never logged") {
		t.Error("Contains should not match an absent message")
	}
}
