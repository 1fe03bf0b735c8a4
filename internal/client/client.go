// Package client talks to the status API of a running "contentflow serve".
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/contentflow/internal/events"
	"github.com/alfredjeanlab/contentflow/internal/ledger"
	"github.com/alfredjeanlab/contentflow/internal/model"
)

// HTTPClient reads runs, quality metrics and events over HTTP/JSON.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewHTTPClient creates a client for the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string, log *slog.Logger) *HTTPClient {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
		log:        log,
	}
}

// Health returns the status string reported by GET /v1/health.
func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, "/v1/health", &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// ListRuns returns up to limit runs, newest first.
func (c *HTTPClient) ListRuns(ctx context.Context, limit int) ([]*ledger.Run, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	var resp struct {
		Runs []*ledger.Run `json:"runs"`
	}
	if err := c.doJSON(ctx, "/v1/runs?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// GetRun returns the run recorded for ds.
func (c *HTTPClient) GetRun(ctx context.Context, ds string) (*ledger.Run, error) {
	var run ledger.Run
	if err := c.doJSON(ctx, "/v1/runs/"+url.PathEscape(ds), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Quality returns the quality metrics stored for ds.
func (c *HTTPClient) Quality(ctx context.Context, ds string) ([]model.QualityMetrics, error) {
	var resp struct {
		Metrics []model.QualityMetrics `json:"metrics"`
	}
	if err := c.doJSON(ctx, "/v1/runs/"+url.PathEscape(ds)+"/quality", &resp); err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}

// Stream follows the server's event stream for topic until ctx is done or the
// server closes the connection.
func (c *HTTPClient) Stream(ctx context.Context, topic string, show func(events.Event)) error {
	req, err := c.newRequest(ctx, "/v1/events/stream?topics="+url.QueryEscape(topic))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connecting to event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	err = c.ReadStream(resp.Body, show)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// ReadStream decodes server-sent events from r until it ends. Events with
// undecodable data are skipped.
func (c *HTTPClient) ReadStream(r io.Reader, show func(events.Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				if e, err := events.Decode(data.Bytes()); err == nil {
					show(e)
				} else {
					c.log.Debug("skipping event", "err", err)
				}
				data.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(line, "data:"))
		}
	}
	return scanner.Err()
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

func (c *HTTPClient) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON performs a GET request and decodes the JSON response into result.
func (c *HTTPClient) doJSON(ctx context.Context, path string, result any) error {
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
