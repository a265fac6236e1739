// Package directory is a typed client for the external directory REST API.
//
// Every method returns (value, error) and every non-nil error is an
// *apperr.Error: NetworkFailure when the request could not be completed,
// ServerRejected for a non-2xx status or a payload that fails schema
// validation. Success is decided by the HTTP status alone.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/app/system/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Config carries the connection settings for the directory API.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client issues requests against one directory API base URL.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        *zap.Logger
	metrics    *metrics.Set
	reads      singleflight.Group
}

// Option customises client construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithMetrics records request counts and latency on m.
func WithMetrics(m *metrics.Set) Option {
	return func(c *Client) { c.metrics = m }
}

// New constructs a Client for cfg.BaseURL. A base URL without a scheme is
// treated as http.
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	base, err := NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    base,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NormalizeBaseURL trims, defaults the scheme and strips trailing slashes.
func NormalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("directory: base url is empty")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("directory: invalid base url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("directory: base url %q has no host", raw)
	}
	return strings.TrimRight(trimmed, "/"), nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Ping reports whether the API host answers at all. Any HTTP response,
// whatever its status, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	const op = "directory.Ping"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return apperr.Network(op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Network(op, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	return nil
}

// get performs a GET and returns the raw body. Identical concurrent GETs
// share one upstream request; each caller still honours its own context.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	ch := c.reads.DoChan(path, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.send(fctx, op, http.MethodGet, path, nil, "")
	})
	select {
	case <-ctx.Done():
		return nil, apperr.Network(op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// postJSON encodes body as JSON and returns the raw response body.
func (c *Client) postJSON(ctx context.Context, op, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperr.Invalid(op, "request could not be encoded", nil)
	}
	return c.send(ctx, op, http.MethodPost, path, bytes.NewReader(payload), "application/json")
}

// send issues one request. Only 2xx statuses succeed.
func (c *Client) send(ctx context.Context, op, method, path string, body io.Reader, contentType string) ([]byte, error) {
	start := time.Now()
	outcome := "ok"
	defer func() { c.metrics.ObserveRequest(op, outcome, time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		outcome = "network"
		return nil, apperr.Network(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "network"
		c.log.Warn("directory request failed",
			zap.String("op", op),
			zap.String("path", path),
			zap.Error(err))
		return nil, apperr.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "rejected"
		msg := extractMessage(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn("directory request rejected",
			zap.String("op", op),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return nil, apperr.Rejected(op, resp.StatusCode, msg)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "network"
		return nil, apperr.Network(op, err)
	}
	return data, nil
}

// extractMessage pulls a human-readable message out of an error body:
// "message" first, then "error", then the trimmed raw text.
func extractMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	switch v := payload.Error.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if m, ok := v["message"].(string); ok {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

type validatable interface{ Validate() error }

// decodeList decodes a JSON array and validates every element.
func decodeList[T validatable](op string, data []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperr.Malformed(op, err)
	}
	if items == nil {
		items = []T{}
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, apperr.Malformed(op, err)
		}
	}
	return items, nil
}

// decodeEntity decodes a single entity that may arrive bare or wrapped in
// an envelope under key (e.g. {"organization": {...}}).
func decodeEntity(op string, data []byte, key string, v any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return apperr.Malformed(op, err)
	}
	raw := json.RawMessage(data)
	if inner, ok := envelope[key]; ok && len(inner) > 0 && string(inner) != "null" {
		raw = inner
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.Malformed(op, err)
	}
	return nil
}
