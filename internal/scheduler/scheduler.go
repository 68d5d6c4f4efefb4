// Package scheduler triggers pipeline runs on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/deusflow/techposter/internal/pipeline"
)

// Runner performs one cycle. pipeline.Pipeline implements it.
type Runner interface {
	RunOnce(ctx context.Context) pipeline.Report
}

// Scheduler runs immediately, then waits interval after each run
// finishes, so runs never overlap.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	nextRun time.Time
	runs    int
}

func New(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", "runs", s.Runs())
			return
		case <-timer.C:
			s.tick(ctx)
			s.setNextRun(time.Now().Add(s.interval))
			timer.Reset(s.interval)
			s.logger.Info("sleeping until next run", "next_run", s.NextRun().Format(time.RFC3339))
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report := s.runner.RunOnce(ctx)

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	s.logger.Debug("tick done", "outcome", report.Outcome)
}

func (s *Scheduler) setNextRun(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRun = t
}

// NextRun is the time of the next scheduled run, zero before the first.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRun
}

// Runs counts completed ticks.
func (s *Scheduler) Runs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs
}
