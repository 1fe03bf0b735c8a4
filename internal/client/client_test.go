package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/events"
)

// testHandler captures the incoming request and returns a canned response.
type testHandler struct {
	path   string
	query  string
	auth   string
	accept string

	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.auth = r.Header.Get("Authorization")
	h.accept = r.Header.Get("Accept")

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	}
	_, _ = io.WriteString(w, h.responseBody)
}

func newTestClient(t *testing.T, h http.Handler, token string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", token, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealth(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	c := newTestClient(t, h, "")

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if status != "ok" || h.path != "/v1/health" {
		t.Errorf("status = %q, path = %q", status, h.path)
	}
	if h.auth != "" {
		t.Errorf("Authorization = %q, want none", h.auth)
	}
}

func TestListRuns(t *testing.T) {
	h := &testHandler{responseBody: `{"runs":[
		{"id":"run-b","ds":"2024-03-02","started_at":"2024-03-02T00:00:00Z","stages":{}},
		{"id":"run-a","ds":"2024-03-01","started_at":"2024-03-01T00:00:00Z","stages":{"load":{"status":"succeeded","records":4}}}
	]}`}
	c := newTestClient(t, h, "secret")

	runs, err := c.ListRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if h.path != "/v1/runs" || h.query != "limit=5" {
		t.Errorf("request = %s?%s", h.path, h.query)
	}
	if h.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", h.auth)
	}
	if len(runs) != 2 || runs[1].Stages["load"].Records != 4 {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestGetRun(t *testing.T) {
	h := &testHandler{responseBody: `{"id":"run-a","ds":"2024-03-01","started_at":"2024-03-01T06:00:00Z","stages":{}}`}
	c := newTestClient(t, h, "")

	run, err := c.GetRun(context.Background(), "2024-03-01")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if h.path != "/v1/runs/2024-03-01" {
		t.Errorf("path = %q", h.path)
	}
	if run.ID != "run-a" || !run.StartedAt.Equal(time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("run = %+v", run)
	}
}

func TestGetRunNotFound(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNotFound, responseBody: `{"error":"no run for 2024-03-01"}`}
	c := newTestClient(t, h, "")

	_, err := c.GetRun(context.Background(), "2024-03-01")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if err.Error() != "HTTP 404: no run for 2024-03-01" {
		t.Errorf("err = %q", err.Error())
	}
}

func TestAPIErrorPlainBody(t *testing.T) {
	h := &testHandler{statusCode: http.StatusBadGateway, responseBody: "upstream gone\n"}
	c := newTestClient(t, h, "")

	_, err := c.Health(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("err = %T %v, want *APIError", err, err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream gone" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if IsNotFound(err) {
		t.Error("502 is not a not-found")
	}
}

func TestQuality(t *testing.T) {
	h := &testHandler{responseBody: `{"ds":"2024-03-01","metrics":[
		{"data_source":"youtube","metric_date":"2024-03-01","total_records":4,"valid_records":3,"quality_score":75}
	]}`}
	c := newTestClient(t, h, "")

	metrics, err := c.Quality(context.Background(), "2024-03-01")
	if err != nil {
		t.Fatalf("Quality: %v", err)
	}
	if h.path != "/v1/runs/2024-03-01/quality" {
		t.Errorf("path = %q", h.path)
	}
	if len(metrics) != 1 || metrics[0].ValidRecords != 3 || metrics[0].QualityScore != 75 {
		t.Errorf("metrics = %+v", metrics)
	}
}

const sampleStream = ":keepalive\n\n" +
	"id:1\nevent:contentflow.run.started\ndata:{\"topic\":\"contentflow.run.started\",\"ds\":\"2024-03-01\"}\n\n" +
	"id:2\nevent:contentflow.stage.failed\ndata:not json\n\n" +
	"id:3\nevent:contentflow.run.completed\ndata:{\"topic\":\"contentflow.run.completed\",\"ds\":\"2024-03-01\"}\n\n"

func TestReadStream(t *testing.T) {
	c := NewHTTPClient("http://unused", "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	var got []events.Event
	if err := c.ReadStream(strings.NewReader(sampleStream), func(e events.Event) { got = append(got, e) }); err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].Topic != events.TopicRunStarted || got[1].Topic != events.TopicRunCompleted {
		t.Errorf("topics = %q, %q", got[0].Topic, got[1].Topic)
	}
}

func TestStream(t *testing.T) {
	h := &testHandler{responseBody: sampleStream}
	c := newTestClient(t, h, "secret")

	var got []events.Event
	err := c.Stream(context.Background(), "contentflow.run.*", func(e events.Event) { got = append(got, e) })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if h.path != "/v1/events/stream" || h.query != "topics=contentflow.run.%2A" {
		t.Errorf("request = %s?%s", h.path, h.query)
	}
	if h.accept != "text/event-stream" || h.auth != "Bearer secret" {
		t.Errorf("headers accept=%q auth=%q", h.accept, h.auth)
	}
	if len(got) != 2 {
		t.Errorf("events = %d, want 2", len(got))
	}
}

func TestStreamUnauthorized(t *testing.T) {
	h := &testHandler{statusCode: http.StatusUnauthorized, responseBody: `{"error":"invalid token"}`}
	c := newTestClient(t, h, "wrong")

	err := c.Stream(context.Background(), events.TopicAll, func(events.Event) {})
	if err == nil || !strings.Contains(err.Error(), "invalid token") {
		t.Fatalf("err = %v", err)
	}
}
