package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging_RecordsStatusAndJobID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest("GET", "/status/vid_abc123", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}

	completed := entries[1].ContextMap()
	if status, ok := completed["status"].(int64); !ok || status != 404 {
		t.Errorf("Expected status 404 on completion entry, got %v", completed["status"])
	}
	if jobID, ok := completed["job_id"].(string); !ok || jobID != "vid_abc123" {
		t.Errorf("Expected job_id vid_abc123, got %v", completed["job_id"])
	}

	incoming := entries[0].ContextMap()
	if jobID, ok := incoming["job_id"].(string); !ok || jobID != "vid_abc123" {
		t.Errorf("Expected job_id on the incoming entry, got %v", incoming["job_id"])
	}
}

func TestLogging_DefaultStatusIsOK(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}
	completed := entries[1].ContextMap()
	if status, ok := completed["status"].(int64); !ok || status != 200 {
		t.Errorf("Expected implicit status 200, got %v", completed["status"])
	}
	if _, ok := completed["job_id"]; ok {
		t.Error("Non-job routes must not carry a job_id field")
	}
}

func TestPathJobID(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/status/vid_1", "vid_1"},
		{"/download/vid_2", "vid_2"},
		{"/jobs/vid_3", "vid_3"},
		{"/status/", ""},
		{"/generate", ""},
		{"/health", ""},
	}
	for _, c := range cases {
		if got := pathJobID(c.path); got != c.want {
			t.Errorf("pathJobID(%q): expected %q, got %q", c.path, c.want, got)
		}
	}
}
