package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// clientName identifies contentflow connections on the NATS server.
const clientName = "contentflow"

// NATSPublisher publishes events as JSON to the subject named by their topic.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name(clientName))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if e.Topic == "" {
		return fmt.Errorf("publish event %s: empty topic", e.ID)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.conn.Publish(e.Topic, data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Topic, err)
	}
	return nil
}

// Close flushes pending events and closes the connection.
func (p *NATSPublisher) Close() error {
	if !p.conn.IsClosed() {
		_ = p.conn.Flush()
	}
	p.conn.Close()
	return nil
}

// NATSSubscriber subscribes to events from NATS subjects.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to NATS with automatic reconnection support.
// Extra nats.Option values (e.g. disconnect/reconnect handlers) can be appended.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// subscriptionBuffer is how many undelivered events a subscriber may hold
// before new ones are dropped.
const subscriptionBuffer = 64

// subscription hands decoded events to one Subscribe caller.
type subscription struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (s *subscription) deliver(msg *nats.Msg) {
	e, err := Decode(msg.Data)
	if err != nil {
		return
	}
	if e.Topic == "" {
		e.Topic = msg.Subject
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- e:
	default:
		// Slow reader: drop, the NATS client must not block.
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Subscribe returns a channel of events published on topic (NATS wildcards
// like "contentflow.stage.*" are allowed). Payloads that are not events are
// dropped. Call the returned cancel function to unsubscribe and close the
// channel.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Event, func(), error) {
	recv := &subscription{ch: make(chan Event, subscriptionBuffer)}

	sub, err := s.conn.Subscribe(topic, recv.deliver)
	if err != nil {
		recv.close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	// Events published on other connections only reach us once the server
	// has registered the subscription.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		recv.close()
		return nil, nil, fmt.Errorf("register subscription to %s: %w", topic, err)
	}

	cancel := func() {
		_ = sub.Unsubscribe()
		recv.close()
	}
	return recv.ch, cancel, nil
}

// Close closes the connection. Open subscriptions stop receiving.
func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
