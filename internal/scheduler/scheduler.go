package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/skysight/aurora-forecast/internal/forecast"
)

// Scheduler periodically re-reads the current Kp index so the cache entry is
// usually warm when a tool call arrives. Refresh goes through the normal
// get-or-fetch path: a fresh entry is a no-op and a failed fetch stores
// nothing, so the cache's no-stale-serve rule is unaffected.
type Scheduler struct {
	scheduler *gocron.Scheduler
	engine    *forecast.Engine
	interval  time.Duration
}

// New creates a Scheduler. A non-positive interval disables the refresh job.
func New(interval time.Duration, engine *forecast.Engine) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		engine:    engine,
		interval:  interval,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := s.engine.CurrentKp(ctx); err != nil {
			log.Printf("scheduler: kp refresh failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
