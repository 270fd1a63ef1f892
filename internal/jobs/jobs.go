// Package jobs runs background tasks on a fixed interval while the server is up.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// Scheduler manages scheduled tasks for the application.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a scheduler. Tasks receive a context that is cancelled by Stop.
func New() *Scheduler {
	s := gocron.NewScheduler(time.Local)
	// A slow sync must not overlap the next one.
	s.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{scheduler: s, ctx: ctx, cancel: cancel}
}

// Every schedules task to run immediately on Start and then once per interval.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", name, interval)
	}
	_, err := s.scheduler.Every(interval).Tag(name).Do(func() {
		start := time.Now()
		if err := task(s.ctx); err != nil {
			slog.Error("job failed", "job", name, "error", err)
			return
		}
		slog.Debug("job finished", "job", name, "took", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	return nil
}

// Start begins running all scheduled tasks without blocking.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop cancels running tasks and terminates the schedule.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}
