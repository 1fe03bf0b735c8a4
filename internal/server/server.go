// Package server exposes run status, data quality, Prometheus metrics and a
// live stream of pipeline events over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/contentflow/internal/events"
	"github.com/alfredjeanlab/contentflow/internal/ledger"
	"github.com/alfredjeanlab/contentflow/internal/metrics"
	"github.com/alfredjeanlab/contentflow/internal/model"
)

// RunReader reads runs from the ledger.
type RunReader interface {
	Get(ds string) (*ledger.Run, error)
	List(limit int) ([]*ledger.Run, error)
}

// QualityReader reads stored quality metrics.
type QualityReader interface {
	QualityMetrics(ctx context.Context, ds string) ([]model.QualityMetrics, error)
}

// StatusServer serves the status API.
type StatusServer struct {
	runs    RunReader
	quality QualityReader
	metrics *metrics.Manager
	sseHub  *sseHub
	log     *slog.Logger
}

// New returns a StatusServer. quality and m may be nil, in which case the
// matching routes report that they are unavailable.
func New(runs RunReader, quality QualityReader, m *metrics.Manager, log *slog.Logger) *StatusServer {
	if log == nil {
		log = slog.Default()
	}
	return &StatusServer{
		runs:    runs,
		quality: quality,
		metrics: m,
		sseHub:  newSSEHub(),
		log:     log,
	}
}

// Broadcast fans e out to connected event stream clients.
func (s *StatusServer) Broadcast(e events.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		s.log.Warn("failed to marshal event for SSE broadcast", "topic", e.Topic, "err", err)
		return
	}
	s.sseHub.broadcast(e.Topic, payload)
}

// Publisher returns an events.Publisher that feeds the event stream directly,
// for runs executed in the same process without a bus.
func (s *StatusServer) Publisher() events.Publisher {
	return hubPublisher{s}
}

type hubPublisher struct{ s *StatusServer }

func (p hubPublisher) Publish(_ context.Context, e events.Event) error {
	p.s.Broadcast(e)
	return nil
}

func (p hubPublisher) Close() error { return nil }

// Forward relays every contentflow event from sub to the event stream until
// ctx is cancelled.
func (s *StatusServer) Forward(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribe to events: %w", err)
	}
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				s.Broadcast(e)
			}
		}
	}()
	return nil
}
