// Package api implements the HTTP client for the dashboard backend. All
// methods are context-aware and share one rate limiter. Requests are never
// retried: a failure is returned to the caller, who keeps its previous
// state until the next poll.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://localhost:5020"
	userAgent      = "pocketdash-cli/1.0"
)

var (
	// ErrUnauthorized is returned for HTTP 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnsuccessful is returned when the backend answers success:false.
	ErrUnsuccessful = errors.New("backend reported failure")
)

// Observer receives the outcome of every request.
type Observer interface {
	ObserveRequest(endpoint string, status int, took time.Duration, err error)
}

// Client is the dashboard backend HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	// Observer, if set, is told about every request.
	Observer Observer
}

// NewClient creates a Client for baseURL with the given timeout and
// requests-per-second limit.
func NewClient(baseURL string, timeout time.Duration, ratePerSec float64) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// envelope is the success/error wrapper several endpoints use.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (e envelope) err(fallback string) error {
	if e.Success {
		return nil
	}
	msg := e.Error
	if msg == "" {
		msg = fallback
	}
	return fmt.Errorf("%w: %s", ErrUnsuccessful, msg)
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// do performs one request. body, if non-nil, is sent as JSON; out, if
// non-nil, receives the decoded response.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("api request", "method", method, "path", path, "request_id", reqID)

	start := time.Now()
	status := 0
	defer func() {
		if c.Observer != nil {
			c.Observer.ObserveRequest(endpointName(path), status, time.Since(start), err)
		}
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	slog.Debug("api response", "path", path, "status", resp.StatusCode, "bytes", len(data), "request_id", reqID)

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.Unmarshal(data, &env)
		if env.Error != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, env.Error)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// endpointName collapses ids and values out of a path for metric labels.
func endpointName(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) >= 3 && parts[1] == "brightness":
		return "/api/brightness/set"
	case len(parts) >= 3 && parts[1] == "todos" && parts[2] != "reorder":
		if len(parts) == 4 {
			return "/api/todos/{id}/" + parts[3]
		}
		return "/api/todos/{id}"
	}
	return path
}
