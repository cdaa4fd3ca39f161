// Package scheduler runs the background jobs of the server.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/hashicorp/go-hclog"
)

// Refresher fills in missing movie details.
type Refresher interface {
	RefreshIncomplete(ctx context.Context) (int, error)
}

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	sched gocron.Scheduler
	log   hclog.Logger
}

// Start schedules the detail refresh job every interval and starts the
// scheduler.  It returns nil when interval is not positive.
func Start(ctx context.Context, interval time.Duration, r Refresher, logger hclog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, nil
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("scheduler")

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	// Every interval: refresh movies missing a poster or description
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, interval)
			defer cancel()
			n, err := r.RefreshIncomplete(jobCtx)
			if err != nil {
				logger.Error("detail refresh failed", "error", err)
				return
			}
			logger.Debug("detail refresh done", "updated", n)
		}),
		gocron.WithName("refresh-movie-details"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule refresh job: %w", err)
	}

	sched.Start()
	logger.Info("scheduler started", "interval", interval)
	return &Scheduler{sched: sched, log: logger}, nil
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	if s == nil {
		return nil
	}
	s.log.Info("stopping scheduler")
	return s.sched.Shutdown()
}
