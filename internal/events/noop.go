package events

import "context"

// NoopPublisher drops every event. It stands in when no bus is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
