// Package events publishes pipeline lifecycle events to an event bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event topic constants
const (
	TopicRunStarted   = "contentflow.run.started"
	TopicRunCompleted = "contentflow.run.completed"

	TopicStageCompleted = "contentflow.stage.completed"
	TopicStageFailed    = "contentflow.stage.failed"
	TopicStageSkipped   = "contentflow.stage.skipped"

	// TopicAll matches every contentflow topic.
	TopicAll = "contentflow.>"
)

// Event is the envelope of every published message.
type Event struct {
	ID      string    `json:"id"`
	Topic   string    `json:"topic"`
	DS      string    `json:"ds"`
	RunID   string    `json:"run_id,omitempty"`
	Stage   string    `json:"stage,omitempty"`
	Records int       `json:"records,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// New returns an event for topic with a fresh ID and timestamp.
func New(topic, ds, runID string) Event {
	return Event{
		ID:    uuid.NewString(),
		Topic: topic,
		DS:    ds,
		RunID: runID,
		At:    time.Now().UTC(),
	}
}

// Decode parses a published payload.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers events on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan Event, func(), error)
	Close() error
}
