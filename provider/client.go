// Package provider implements the generic two-phase protocol shared by
// every generative backend: submit a task, then poll its status until the
// provider reports success or failure. Generation kinds differ only in
// request shape, result-extraction priority, and attempt budgets; the poll
// loop itself exists once.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// TaskState is the provider's externally reported status projected onto a
// fixed tri-state.
type TaskState int

const (
	StatePending TaskState = iota
	StateSuccess
	StateFailed
)

// Classification is the per-attempt verdict from a kind's Classify
// function. Message carries the provider-supplied failure reason.
type Classification struct {
	State   TaskState
	Message string
}

// SubmitSpec describes the creation call for one generation kind.
type SubmitSpec struct {
	Path        string
	Body        any
	TaskIDPaths [][]string
}

// PollSpec describes the status call for one generation kind.
type PollSpec struct {
	Path       string
	QueryParam string
	Classify   func(data map[string]any) Classification
	Extractors []Extractor

	// MaxAttempts and Interval bound the poll loop. Total wall-clock time
	// is MaxAttempts*Interval; there is deliberately no separate deadline.
	MaxAttempts int
	Interval    time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger

	// sleep is overridable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Submit issues the creation call and extracts the task identifier.
func (c *Client) Submit(ctx context.Context, spec SubmitSpec) (string, error) {
	payload, err := json.Marshal(spec.Body)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrSubmission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+spec.Path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Gateways answer with HTML error pages; never assume JSON here.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var data map[string]any
		if json.Unmarshal(body, &data) != nil {
			data = nil
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrSubmission, resp.StatusCode, providerMessage(data))
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrSubmission, err)
	}
	if code, ok := providerCode(data); ok && code != 200 {
		return "", fmt.Errorf("%w: code %d: %s", ErrSubmission, code, providerMessage(data))
	}

	for _, path := range spec.TaskIDPaths {
		if v, ok := lookup(data, path...); ok {
			if id, ok := v.(string); ok && id != "" {
				c.logger.Info("task submitted",
					zap.String("path", spec.Path),
					zap.String("task_id", id),
				)
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("%w: no task id in response", ErrSubmission)
}

// Poll queries the provider until the task succeeds, fails, or the attempt
// budget runs out.
//
// Anything that is not an explicit success or failure signal - network
// errors, malformed JSON, unknown status strings, a 404 before the task
// exists - counts as "still pending" and burns one attempt. This is a
// deliberate tunable: it keeps the loop resilient against eventually
// consistent status endpoints, at the cost of masking a truly wedged task
// until MaxAttempts is exhausted.
func (c *Client) Poll(ctx context.Context, spec PollSpec, taskID string) (string, error) {
	for attempt := 0; attempt < spec.MaxAttempts; attempt++ {
		data, err := c.pollOnce(ctx, spec, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Debug("poll attempt not ready",
				zap.String("task_id", taskID),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if err := c.waitInterval(ctx, spec.Interval, attempt, spec.MaxAttempts); err != nil {
				return "", err
			}
			continue
		}

		if code, ok := providerCode(data); ok && code != 200 {
			return "", fmt.Errorf("%w: code %d: %s", ErrProvider, code, providerMessage(data))
		}

		verdict := spec.Classify(data)
		switch verdict.State {
		case StateSuccess:
			for _, extract := range spec.Extractors {
				if result, ok := extract(data); ok {
					return result, nil
				}
			}
			return "", fmt.Errorf("%w: success reported but no result found", ErrMalformedResponse)

		case StateFailed:
			msg := verdict.Message
			if msg == "" {
				msg = "unknown error"
			}
			return "", fmt.Errorf("%w: %s", ErrTaskFailed, msg)

		default:
			if err := c.waitInterval(ctx, spec.Interval, attempt, spec.MaxAttempts); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("%w: task %s after %d attempts (%s)",
		ErrPollTimeout, taskID, spec.MaxAttempts,
		time.Duration(spec.MaxAttempts)*spec.Interval)
}

func (c *Client) pollOnce(ctx context.Context, spec PollSpec, taskID string) (map[string]any, error) {
	q := url.Values{}
	q.Set(spec.QueryParam, taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+spec.Path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return data, nil
}

// waitInterval sleeps one poll interval, except after the final attempt
// where sleeping would only delay the timeout verdict.
func (c *Client) waitInterval(ctx context.Context, interval time.Duration, attempt, maxAttempts int) error {
	if attempt >= maxAttempts-1 {
		return nil
	}
	return c.sleep(ctx, interval)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", "videogen/1.0")
}

func providerCode(data map[string]any) (int, bool) {
	v, ok := data["code"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func providerMessage(data map[string]any) string {
	for _, key := range []string{"msg", "message", "error"} {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}
	return "no message"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
