package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

func TestNew(t *testing.T) {
	before := time.Now().UTC()
	e := New(TopicRunStarted, "2024-03-01", "run-abc")

	if _, err := uuid.Parse(e.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", e.ID, err)
	}
	if e.Topic != TopicRunStarted || e.DS != "2024-03-01" || e.RunID != "run-abc" {
		t.Errorf("event = %+v", e)
	}
	if e.At.Before(before) {
		t.Errorf("At = %v, want >= %v", e.At, before)
	}
	if other := New(TopicRunStarted, "2024-03-01", "run-abc"); other.ID == e.ID {
		t.Error("expected distinct event IDs")
	}
}

func TestDecode(t *testing.T) {
	e, err := Decode([]byte(`{"id":"1","topic":"contentflow.stage.failed","ds":"2024-03-01","stage":"load","error":"boom"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if e.Stage != "load" || e.Error != "boom" {
		t.Errorf("event = %+v", e)
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = &NoopPublisher{}
	if err := pub.Publish(context.Background(), New(TopicRunStarted, "2024-03-01", "")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicStageCompleted, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	e := New(TopicStageCompleted, "2024-03-01", "run-1")
	e.Stage = "collect_youtube"
	e.Records = 42
	if err := pub.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		got, err := Decode(msg.Data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != e.ID || got.Stage != "collect_youtube" || got.Records != 42 {
			t.Errorf("got %+v, want %+v", got, e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_EmptyTopic(t *testing.T) {
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	if err := pub.Publish(context.Background(), Event{ID: "x"}); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	// Close is idempotent.
	if err := pub.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	if err := pub.Publish(context.Background(), New(TopicRunCompleted, "2024-03-01", "")); err == nil {
		t.Error("expected error publishing after close")
	}
}
