// Package calendar is the REST client for the downstream calendar backend.
// One Client is constructed per request; the underlying pooled *http.Client
// is shared across requests.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LexCal/LexCal/internal/outcome"
)

// Client calls the calendar backend on behalf of one tenant request.
// All failures surface as structured results; raw transport errors never
// escape this package.
type Client struct {
	baseURL  string
	tenantID string
	traceID  string
	http     *http.Client
	retry    RetryPolicy
	token    string
	ready    bool
}

// NewClient creates a per-request backend client.
func NewClient(baseURL string, httpClient *http.Client, tenantID, traceID string, retry RetryPolicy) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		tenantID: tenantID,
		traceID:  traceID,
		http:     httpClient,
		retry:    retry,
	}
}

// InstallToken stores the session credential for the rest of the request.
func (c *Client) InstallToken(token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	c.token = token
	c.ready = true
}

// SessionReady reports whether a session token has been installed.
func (c *Client) SessionReady() bool {
	return c.ready
}

// ListEvents retrieves all calendar events for the tenant.
func (c *Client) ListEvents(ctx context.Context) outcome.Result {
	return c.request(ctx, http.MethodGet, "/events", nil, nil)
}

// GetEvent retrieves one event by id.
func (c *Client) GetEvent(ctx context.Context, eventID string) outcome.Result {
	return c.request(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID), nil, nil)
}

// CreateEvent creates a new event.
func (c *Client) CreateEvent(ctx context.Context, event map[string]any) outcome.Result {
	return c.request(ctx, http.MethodPost, "/events", nil, event)
}

// UpdateEvent patches an existing event.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, fields map[string]any) outcome.Result {
	return c.request(ctx, http.MethodPatch, "/events/"+url.PathEscape(eventID), nil, fields)
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) outcome.Result {
	return c.request(ctx, http.MethodDelete, "/events/"+url.PathEscape(eventID), nil, nil)
}

// InitSession obtains a session token from the backend. The caller installs
// the returned token via InstallToken.
func (c *Client) InitSession(ctx context.Context) outcome.Result {
	return c.request(ctx, http.MethodGet, "/auth/token", nil, nil)
}

// Status probes the backend status endpoint.
func (c *Client) Status(ctx context.Context) outcome.Result {
	return c.request(ctx, http.MethodGet, "/status", nil, nil)
}

// SyncGoogle triggers a Google calendar sync on the backend.
func (c *Client) SyncGoogle(ctx context.Context) outcome.Result {
	return c.request(ctx, http.MethodPost, "/events/sync-google", nil, nil)
}

// CheckConflict asks the backend whether any event overlaps the window.
// Timestamps are percent-encoded via url.Values so a "+" offset never
// reaches the backend as a literal space. On transport failure the check
// fails open: assistant availability outranks strict conflict enforcement,
// and the miss is logged so the tradeoff stays visible.
// Returns (conflict, checked); checked is false when the probe itself failed.
func (c *Client) CheckConflict(ctx context.Context, start, end string) (bool, bool) {
	query := url.Values{}
	query.Set("start", start)
	query.Set("end", end)
	res := c.request(ctx, http.MethodGet, "/events/conflicts", query, nil)
	if res.IsError() {
		slog.Warn("Conflict check failed open", "trace_id", c.traceID, "reason", res.Message())
		return false, false
	}
	conflict, _ := res["conflict"].(bool)
	return conflict, true
}

// request performs one backend call with bounded retry and translates every
// failure mode into a structured result.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body map[string]any) outcome.Result {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return outcome.Fail(outcome.CodeValidationError, fmt.Sprintf("unencodable request body: %v", err))
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.attempts(); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return outcome.Fail(outcome.CodeBackendUnavailable, "request cancelled during retry")
			case <-time.After(c.retry.Delay(attempt - 1)):
			}
		}

		status, respBody, err := c.do(ctx, method, reqURL, payload)
		if err != nil {
			lastErr = err
			slog.Warn("Backend call failed", "method", method, "path", path, "attempt", attempt+1, "error", err)
			continue
		}
		if status >= 500 {
			lastErr = fmt.Errorf("backend status %d", status)
			slog.Warn("Backend call failed", "method", method, "path", path, "attempt", attempt+1, "status", status)
			continue
		}
		return c.translate(status, respBody)
	}

	slog.Error("Backend unavailable after retries", "method", method, "path", path, "attempts", c.retry.attempts(), "error", lastErr)
	return outcome.Fail(outcome.CodeBackendUnavailable,
		"The calendar service is temporarily unavailable. Please try again shortly.")
}

func (c *Client) do(ctx context.Context, method, reqURL string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Tenant-ID", c.tenantID)
	req.Header.Set("X-Trace-ID", c.traceID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// translate maps a non-5xx backend response to a structured result.
func (c *Client) translate(status int, body []byte) outcome.Result {
	if status < 400 {
		return parsePayload(body)
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(status)
	}

	// Expired or invalid credentials get a dedicated result so the model
	// can steer the user through re-authentication.
	if (status == http.StatusBadRequest || status == http.StatusUnauthorized) &&
		strings.Contains(strings.ToLower(message), "token") {
		return outcome.Fail(outcome.CodeReauthRequired,
			"Your session has expired. Please re-authenticate.").
			With("reauth_url", c.baseURL+"/auth/login")
	}

	return outcome.Fail(outcome.CodeValidationError,
		fmt.Sprintf("Backend rejected the request (status %d): %s", status, truncate(message, 300)))
}

func parsePayload(body []byte) outcome.Result {
	if len(bytes.TrimSpace(body)) == 0 {
		return outcome.OK(nil)
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return outcome.OK(map[string]any{"raw": truncate(string(body), 2000)})
	}
	switch v := decoded.(type) {
	case map[string]any:
		return outcome.OK(v)
	case []any:
		return outcome.OK(map[string]any{"events": v, "count": len(v)})
	default:
		return outcome.OK(map[string]any{"value": v})
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
