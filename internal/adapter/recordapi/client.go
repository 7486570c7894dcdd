// Package recordapi is the HTTP client for the health and meal log backend.
package recordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"healthmate/internal/domain"
)

const defaultBaseURL = "http://127.0.0.1:8000"

const (
	healthLogsPath = "/health-logs"
	mealLogsPath   = "/meal-logs"
)

// StatusError is returned for any non-2xx response. The body is kept for
// logging only; callers see the uniform message.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Client talks to the record backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// HealthLogs returns the health log resource.
func (c *Client) HealthLogs() *Resource[domain.HealthLog, domain.HealthLogDraft] {
	return &Resource[domain.HealthLog, domain.HealthLogDraft]{client: c, path: healthLogsPath}
}

// MealLogs returns the meal log resource.
func (c *Client) MealLogs() *Resource[domain.MealLog, domain.MealLogDraft] {
	return &Resource[domain.MealLog, domain.MealLogDraft]{client: c, path: mealLogsPath}
}

// Summary fetches the weekly coach summary for userID.
func (c *Client) Summary(ctx context.Context, userID string) (*domain.CoachSummary, error) {
	var out domain.CoachSummary
	q := url.Values{"user_id": {userID}}
	if err := c.do(ctx, http.MethodGet, "/coach/summary", q, nil, &out); err != nil {
		return nil, fmt.Errorf("coach summary: %w", err)
	}
	return &out, nil
}

// Status calls the backend liveness endpoint.
func (c *Client) Status(ctx context.Context) (*domain.BackendStatus, error) {
	var out domain.BackendStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("backend status: %w", err)
	}
	return &out, nil
}

func (c *Client) baseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return &http.Client{Timeout: 12 * time.Second}
	}
	return c.HTTPClient
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: raw}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
