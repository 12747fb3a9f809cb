/**
 * @description
 * Cron scheduler setup. Registers one cron entry per distinct tick time and
 * the daily maintenance job. Delivery of wall-clock ticks lives here; what
 * should happen at each tick is decided by the trigger table in triggers.go.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/focusly/coach-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance running in the given location.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config, loc *time.Location) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	s.add(s.config.ResetTickSchedule, "midnight reset", func() { s.jobs.ResetDailyState(time.Now()) })
	s.add(s.config.FocusTickSchedule, "focus prompt tick", func() { s.jobs.RunTick(time.Now()) })
	s.add(s.config.SubmitTickSchedule, "submit prompt tick", func() { s.jobs.RunTick(time.Now()) })
	s.add(s.config.CheckInTickSchedule, "check-in nudge tick", func() { s.jobs.RunTick(time.Now()) })
	s.add(s.config.LegacyCheckInSchedule, "legacy check-in tick", func() { s.jobs.RunTick(time.Now()) })
	s.add(s.config.MaintenanceJobSchedule, "maintenance job", func() { s.jobs.RunMaintenance(time.Now()) })

	s.cron.Start()
}

func (s *Scheduler) add(schedule, name string, fn func()) {
	if _, err := s.cron.AddFunc(schedule, fn); err != nil {
		s.logger.Error("failed to schedule job", "job", name, "schedule", schedule, "error", err)
		return
	}
	s.logger.Info("scheduled job", "job", name, "schedule", schedule)
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
