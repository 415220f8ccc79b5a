// Package collector forwards normalized session and message records to the
// remote collector service.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

var (
	// ErrUnauthorized indicates the API key was rejected.
	ErrUnauthorized = errors.New("collector: unauthorized (check api key)")
	// ErrRateLimited indicates the collector throttled the request.
	ErrRateLimited = errors.New("collector: rate limited")
)

// Sink receives normalized records. The reconciler depends on this rather
// than on the HTTP client so tests can capture forwarded records in memory.
type Sink interface {
	SyncSession(ctx context.Context, rec SessionRecord) error
	SyncMessage(ctx context.Context, rec MessageRecord) error
}

// Client talks to the collector's sync endpoints.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client for the given collector base URL.
// Returns nil if the URL is empty.
func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

// SyncSession posts a partial session upsert.
func (c *Client) SyncSession(ctx context.Context, rec SessionRecord) error {
	return c.post(ctx, "/sync/session", rec)
}

// SyncMessage posts a partial message upsert.
func (c *Client) SyncMessage(ctx context.Context, rec MessageRecord) error {
	return c.post(ctx, "/sync/message", rec)
}

// SyncBatch posts session and message upserts in one request.
func (c *Client) SyncBatch(ctx context.Context, sessions []SessionRecord, messages []MessageRecord) error {
	if len(sessions) == 0 && len(messages) == 0 {
		return nil
	}
	return c.post(ctx, "/sync/batch", batchRequest{Sessions: sessions, Messages: messages})
}

// Health probes GET /health. A nil error means the collector is reachable.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("collector: creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("collector: health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	return statusErr(resp.StatusCode)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("collector: encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("collector: creating request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("collector: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	return statusErr(resp.StatusCode)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ccrelay/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func statusErr(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("collector: unexpected status %d", code)
	}
	return nil
}
