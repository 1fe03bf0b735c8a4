package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// sseReplaySize is the number of recent events kept for clients that
	// reconnect with Last-Event-ID.
	sseReplaySize = 256

	// sseKeepaliveInterval is how often a comment line is written to idle
	// streams.
	sseKeepaliveInterval = 15 * time.Second

	// sseClientBuffer is the number of events queued per client before new
	// ones are dropped.
	sseClientBuffer = 64
)

// sseEvent is one pipeline event as sent to stream clients.
type sseEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// sseHub fans pipeline events out to connected stream clients and keeps the
// most recent ones for replay.
type sseHub struct {
	mu      sync.RWMutex
	clients map[*sseClient]struct{}
	nextID  atomic.Uint64

	replayMu sync.RWMutex
	replay   [sseReplaySize]sseEvent
	head     int // next write position
	size     int // valid entries
}

// sseClient is one connected stream consumer.
type sseClient struct {
	topics []string // patterns; empty matches everything
	ch     chan *sseEvent
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast assigns the next sequence number to an event, stores it for
// replay and queues it for every matching client. Slow clients lose events.
func (h *sseHub) broadcast(topic string, payload []byte) {
	evt := sseEvent{ID: h.nextID.Add(1), Topic: topic, Data: payload}

	h.replayMu.Lock()
	h.replay[h.head] = evt
	h.head = (h.head + 1) % sseReplaySize
	if h.size < sseReplaySize {
		h.size++
	}
	h.replayMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.ch <- &evt:
		default:
		}
	}
}

func (h *sseHub) subscribe(topics []string) *sseClient {
	c := &sseClient{topics: topics, ch: make(chan *sseEvent, sseClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// since returns the stored events newer than lastID, oldest first.
func (h *sseHub) since(lastID uint64) []sseEvent {
	h.replayMu.RLock()
	defer h.replayMu.RUnlock()

	var out []sseEvent
	start := (h.head - h.size + sseReplaySize) % sseReplaySize
	for i := 0; i < h.size; i++ {
		evt := h.replay[(start+i)%sseReplaySize]
		if evt.ID > lastID {
			out = append(out, evt)
		}
	}
	return out
}

func (c *sseClient) wants(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, p := range c.topics {
		if matchTopic(p, topic) {
			return true
		}
	}
	return false
}

// matchTopic matches a dot-separated topic against a NATS-style pattern: "*"
// matches one segment and a trailing ">" matches one or more.
func matchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, p := range pat {
		if p == ">" {
			return i < len(top)
		}
		if i >= len(top) || (p != "*" && p != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

// handleEventStream handles GET /v1/events/stream?topics=a,b as server-sent
// events.
func (s *StatusServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	client := s.sseHub.subscribe(topics)
	defer s.sseHub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if lastID, err := strconv.ParseUint(v, 10, 64); err == nil {
			for _, evt := range s.sseHub.since(lastID) {
				if client.wants(evt.Topic) {
					writeSSEEvent(w, &evt)
				}
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, evt *sseEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
