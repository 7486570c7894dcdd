// Package httpclient builds the outbound HTTP client shared by the backend
// and identity adapters.
package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// Transport logs every outgoing request and tags it with a request id.
type Transport struct {
	Base      http.RoundTripper
	Logger    *slog.Logger
	UserAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	id := req.Header.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
		req.Header.Set(requestIDHeader, id)
	}
	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Debug("http.request.failed",
			"method", req.Method,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"request_id", id,
			"duration", elapsed,
			"err", err,
		)
		return nil, err
	}
	logger.Debug("http.request",
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"request_id", id,
		"duration", elapsed,
	)
	return resp, nil
}

// New returns a client with the logging transport and the given timeout.
func New(timeout time.Duration, userAgent string) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{UserAgent: userAgent},
	}
}
