package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/ledger"
)

type runRecorder struct {
	mu  sync.Mutex
	dss []string
	err error
}

func (r *runRecorder) run(_ context.Context, ds string) (*ledger.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dss = append(r.dss, ds)
	return &ledger.Run{DS: ds}, r.err
}

func (r *runRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dss)
}

func newTestScheduler(rec *runRecorder, interval time.Duration) *Scheduler {
	return &Scheduler{
		run:      rec.run,
		today:    func() string { return "2024-03-01" },
		interval: interval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSchedulerStartStop(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(rec, 50*time.Millisecond)
	sched.Start(context.Background())

	// Wait for the initial run + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if n := rec.count(); n < 2 {
		t.Fatalf("expected at least 2 runs, got %d", n)
	}
	if rec.dss[0] != "2024-03-01" {
		t.Errorf("ds = %q", rec.dss[0])
	}
}

func TestSchedulerRunsImmediately(t *testing.T) {
	rec := &runRecorder{err: errors.New("stage failed")}
	sched := newTestScheduler(rec, time.Hour)
	sched.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	sched.Stop()

	if n := rec.count(); n != 1 {
		t.Fatalf("runs = %d, want 1", n)
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := newTestScheduler(&runRecorder{}, time.Minute)
	// Stop without Start should not panic.
	sched.Stop()
}

func TestNewSchedulerUsesRunner(t *testing.T) {
	f := newFixture(t, defaultCollectors(), nil)
	sched := NewScheduler(f.runner, time.Hour, slog.Default())
	if sched.today() != "2024-03-01" {
		t.Errorf("today = %q", sched.today())
	}
}
