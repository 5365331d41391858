// Package scheduler optionally triggers sync cycles on a fixed interval.
// The core pipeline stays externally triggered; this is an operator
// convenience enabled by SYNC_INTERVAL.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	syncpkg "github.com/fuelmap-es/gasolineras-api/sync"
)

// Scheduler periodically runs the sync orchestrator.
type Scheduler struct {
	scheduler    *gocron.Scheduler
	orchestrator *syncpkg.Orchestrator
	interval     time.Duration
}

// New creates a Scheduler.
func New(interval time.Duration, orchestrator *syncpkg.Orchestrator) *Scheduler {
	return &Scheduler{
		scheduler:    gocron.NewScheduler(time.UTC),
		orchestrator: orchestrator,
		interval:     interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 1
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: running sync cycle")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res, err := s.orchestrator.Synchronize(ctx)
		if err != nil {
			log.Printf("scheduler: sync failed: %v", err)
			return
		}
		log.Printf("scheduler: sync completed (inserted=%d historical=%d)", res.Inserted, res.Historical)
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
