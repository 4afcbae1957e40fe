package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	c := NewClient(server.URL, "test-key", zaptest.NewLogger(t))
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func jsonResponse(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func testPollSpec(maxAttempts int) PollSpec {
	return PollSpec{
		Path:        "/jobs/recordInfo",
		QueryParam:  "taskId",
		Classify:    classifyByState,
		Extractors:  []Extractor{PathString("data", "result")},
		MaxAttempts: maxAttempts,
		Interval:    time.Millisecond,
	}
}

func TestSubmit_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Unexpected auth header: %s", auth)
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{"taskId": "task-123"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	taskID, err := client.Submit(context.Background(), SubmitSpec{
		Path:        "/jobs/createTask",
		Body:        map[string]any{"model": "test"},
		TaskIDPaths: defaultTaskIDPaths,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if taskID != "task-123" {
		t.Errorf("Expected task-123, got %s", taskID)
	}
}

func TestSubmit_OrderedIDPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"code":    200,
			"task_id": "fallback-id",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	taskID, err := client.Submit(context.Background(), SubmitSpec{
		Path:        "/jobs/createTask",
		Body:        map[string]any{},
		TaskIDPaths: defaultTaskIDPaths,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if taskID != "fallback-id" {
		t.Errorf("Expected fallback-id, got %s", taskID)
	}
}

func TestSubmit_ProviderCodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 402,
			"msg":  "insufficient credits",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Submit(context.Background(), SubmitSpec{
		Path:        "/jobs/createTask",
		Body:        map[string]any{},
		TaskIDPaths: defaultTaskIDPaths,
	})
	if !errors.Is(err, ErrSubmission) {
		t.Errorf("Expected ErrSubmission, got %v", err)
	}
}

func TestSubmit_GatewayErrorWithHTMLBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html><body>502 Bad Gateway</body></html>"))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Submit(context.Background(), SubmitSpec{
		Path:        "/jobs/createTask",
		Body:        map[string]any{},
		TaskIDPaths: defaultTaskIDPaths,
	})
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("Expected ErrSubmission, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("Error should carry the HTTP status, got: %v", err)
	}
}

func TestSubmit_NoTaskID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{"code": 200, "data": map[string]any{}})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Submit(context.Background(), SubmitSpec{
		Path:        "/jobs/createTask",
		Body:        map[string]any{},
		TaskIDPaths: defaultTaskIDPaths,
	})
	if !errors.Is(err, ErrSubmission) {
		t.Errorf("Expected ErrSubmission, got %v", err)
	}
}

func TestPoll_SuccessOnFinalAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			jsonResponse(w, http.StatusOK, map[string]any{
				"code": 200,
				"data": map[string]any{"state": "waiting"},
			})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{"state": "success", "result": "https://cdn.example/out.mp4"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.Poll(context.Background(), testPollSpec(3), "task-1")
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if result != "https://cdn.example/out.mp4" {
		t.Errorf("Unexpected result: %s", result)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestPoll_ExhaustionIsTimeout(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{"state": "waiting"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Poll(context.Background(), testPollSpec(4), "task-1")
	if !errors.Is(err, ErrPollTimeout) {
		t.Errorf("Expected ErrPollTimeout, got %v", err)
	}
	if attempts != 4 {
		t.Errorf("Expected exactly 4 attempts, got %d", attempts)
	}
}

func TestPoll_TaskFailedIsFatal(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{"state": "failed", "error": "content policy violation"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Poll(context.Background(), testPollSpec(10), "task-1")
	if !errors.Is(err, ErrTaskFailed) {
		t.Fatalf("Expected ErrTaskFailed, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Fatal failure must not retry, got %d attempts", attempts)
	}
	if !IsFatal(err) {
		t.Error("ErrTaskFailed must classify as fatal")
	}
}

func TestPoll_ProviderCodeIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 500,
			"msg":  "internal provider error",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Poll(context.Background(), testPollSpec(10), "task-1")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("Expected ErrProvider, got %v", err)
	}
	if !IsFatal(err) {
		t.Error("ErrProvider must classify as fatal")
	}
}

func TestPoll_SuccessWithoutResultIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{"state": "success"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Poll(context.Background(), testPollSpec(10), "task-1")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("Expected ErrMalformedResponse, got %v", err)
	}
	if !IsFatal(err) {
		t.Error("ErrMalformedResponse must classify as fatal")
	}
}

func TestPoll_HTTPErrorCountsAsPending(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			// 404 before the task exists: still pending.
			w.WriteHeader(http.StatusNotFound)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{"state": "success", "result": "https://cdn.example/out.mp4"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.Poll(context.Background(), testPollSpec(3), "task-1")
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if result != "https://cdn.example/out.mp4" {
		t.Errorf("Unexpected result: %s", result)
	}
}

func TestPoll_UnknownStateCountsAsPending(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			jsonResponse(w, http.StatusOK, map[string]any{
				"code": 200,
				"data": map[string]any{"state": "reticulating"},
			})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{"state": "success", "result": "https://cdn.example/out.mp4"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.Poll(context.Background(), testPollSpec(3), "task-1"); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
}

func TestPoll_NoSleepAfterFinalAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{"state": "waiting"},
		})
	}))
	defer server.Close()

	sleeps := 0
	client := NewClient(server.URL, "", zaptest.NewLogger(t))
	client.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}

	_, err := client.Poll(context.Background(), testPollSpec(3), "task-1")
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("Expected ErrPollTimeout, got %v", err)
	}
	if sleeps != 2 {
		t.Errorf("Expected 2 sleeps for 3 attempts, got %d", sleeps)
	}
}
