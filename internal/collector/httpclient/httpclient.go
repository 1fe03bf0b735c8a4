// Package httpclient is the REST client shared by the platform collectors:
// base URL, bearer or query-parameter auth, retries on 429 and 5xx, and a
// daily request quota counter.
package httpclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is an HTTP client for JSON REST APIs.
type Client struct {
	baseURL     string
	bearer      string
	token       TokenFunc
	queryParams url.Values
	httpClient  *http.Client
	quota       *Quota
	observer    Observer
	pause       time.Duration
	backoff     time.Duration
}

// Observer is notified after every completed request. status is 0 when the
// request failed before a response arrived.
type Observer func(method, path string, status int, elapsed time.Duration)

// TokenFunc returns the bearer token for the next request. It is consulted
// before every request so that expiring tokens can be refreshed.
type TokenFunc func(ctx context.Context) (string, error)

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string // internal: Retry-After header value for 429s
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status carried by err when it wraps an
// *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBearer sends an "Authorization: Bearer" header with every request.
func WithBearer(token string) Option {
	return func(c *Client) {
		c.bearer = token
	}
}

// WithTokenFunc obtains the bearer token from f before every request.
func WithTokenFunc(f TokenFunc) Option {
	return func(c *Client) {
		c.token = f
	}
}

// WithQueryParam adds a query parameter to every request (API keys).
func WithQueryParam(key, value string) Option {
	return func(c *Client) {
		c.queryParams.Set(key, value)
	}
}

// WithQuota attaches a request quota counter.
func WithQuota(q *Quota) Option {
	return func(c *Client) {
		c.quota = q
	}
}

// WithObserver registers a per-request callback (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithQuotaPause sets how long a request waits when the quota is nearly used up.
func WithQuotaPause(d time.Duration) Option {
	return func(c *Client) {
		c.pause = d
	}
}

// WithBackoff sets the base delay of the exponential retry backoff.
func WithBackoff(base time.Duration) Option {
	return func(c *Client) {
		c.backoff = base
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		queryParams: url.Values{},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pause:   time.Second,
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quota returns the attached quota counter, or nil.
func (c *Client) Quota() *Quota {
	return c.quota
}

const maxRetries = 3

// GetJSON sends a GET request and unmarshals the JSON response into dest.
// Returns *APIError for non-2xx responses. Retries on 429 (with Retry-After)
// and 5xx (with exponential backoff: 1s, 2s, 4s). Max 3 retries.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, nil, dest)
}

// PostForm sends a form-encoded POST with HTTP basic auth, used for OAuth
// client-credentials token exchanges.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, user, pass string, dest any) error {
	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	if user != "" {
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
	}
	return c.do(ctx, http.MethodPost, path, nil, header, []byte(form.Encode()), dest)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body []byte, dest any) error {
	fullURL := c.buildURL(path, query)

	if c.quota != nil && c.quota.Approaching() {
		if err := sleep(ctx, c.pause); err != nil {
			return err
		}
	}

	bearer := c.bearer
	if c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("obtain access token: %w", err)
		}
		bearer = tok
	}

	var lastErr *APIError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoffDelay(c.backoff, attempt, lastErr)); err != nil {
				return err
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if bearer != "" && req.Header.Get("Authorization") == "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.observe(method, path, 0, start)
			return err
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.observe(method, path, resp.StatusCode, start)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if c.quota != nil {
				c.quota.Add(1)
			}
			if dest == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, dest); err != nil {
				return fmt.Errorf("decode %s response: %w", path, err)
			}
			return nil
		}

		bodyStr := string(respBody)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: bodyStr}

		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = apiErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = apiErr
			continue
		}

		return apiErr
	}

	return lastErr
}

func (c *Client) buildURL(path string, query url.Values) string {
	fullURL := c.baseURL + path
	merged := url.Values{}
	for k, vs := range query {
		merged[k] = append([]string(nil), vs...)
	}
	for k, vs := range c.queryParams {
		merged[k] = append([]string(nil), vs...)
	}
	if len(merged) > 0 {
		fullURL += "?" + merged.Encode()
	}
	return fullURL
}

func (c *Client) observe(method, path string, status int, start time.Time) {
	if c.observer != nil {
		c.observer(method, path, status, time.Since(start))
	}
}

// backoffDelay returns the wait duration before a retry attempt.
func backoffDelay(base time.Duration, attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	// Exponential backoff: 1s, 2s, 4s with the default base.
	return base * time.Duration(1<<(attempt-1))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
