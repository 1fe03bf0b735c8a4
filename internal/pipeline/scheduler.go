package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/ledger"
)

// runFunc runs the pipeline for one date.
type runFunc func(ctx context.Context, ds string) (*ledger.Run, error)

// Scheduler runs the pipeline for the current date at a fixed interval.
type Scheduler struct {
	run      runFunc
	today    func() string
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that runs r every interval.
func NewScheduler(r *Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		run:      r.Run,
		today:    r.Today,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the pipeline immediately and then on each tick.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current run (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	ds := s.today()
	if _, err := s.run(ctx, ds); err != nil {
		s.logger.Error("scheduled run finished with errors", "ds", ds, "err", err)
		return
	}
	s.logger.Info("scheduled run completed", "ds", ds)
}
