// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/metrics"
)

const defaultJobTimeout = 5 * time.Minute

// Job is one scheduled maintenance task.
type Job struct {
	Name string
	// Schedule is a standard five-field cron expression or descriptor
	// such as "@every 15m".
	Schedule string
	Run      func(ctx context.Context) error
	// OnStop runs the job once more while the service shuts down.
	OnStop bool
}

// MaintenanceService runs Jobs on their cron schedules.
//
// Overlapping runs of the same job are skipped and a panicking job is
// recovered. Every run is recorded in momentum_maintenance_runs_total.
type MaintenanceService struct {
	jobs    []Job
	timeout time.Duration
	logger  zerolog.Logger
}

// NewMaintenanceService creates a service for jobs. Each run is bounded by
// a 5 minute timeout.
func NewMaintenanceService(jobs ...Job) *MaintenanceService {
	return &MaintenanceService{
		jobs:    jobs,
		timeout: defaultJobTimeout,
		logger:  logging.WithComponent("maintenance"),
	}
}

// Serve implements suture.Service. An invalid schedule stops the service
// permanently rather than restarting into the same error.
func (m *MaintenanceService) Serve(ctx context.Context) error {
	cl := cronLogger{l: m.logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	for _, job := range m.jobs {
		if _, err := c.AddFunc(job.Schedule, func() { m.run(ctx, job) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w: %w", job.Name, job.Schedule, err, suture.ErrDoNotRestart)
		}
		m.logger.Info().Str("job", job.Name).Str("schedule", job.Schedule).Msg("Maintenance job scheduled")
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	final := context.WithoutCancel(ctx)
	for _, job := range m.jobs {
		if job.OnStop {
			m.run(final, job)
		}
	}
	return ctx.Err()
}

// RunNow executes the named job immediately, outside its schedule.
func (m *MaintenanceService) RunNow(ctx context.Context, name string) error {
	for _, job := range m.jobs {
		if job.Name == name {
			return m.run(ctx, job)
		}
	}
	return fmt.Errorf("unknown maintenance job %q", name)
}

func (m *MaintenanceService) run(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	metrics.RecordMaintenance(job.Name, err)

	if err != nil {
		m.logger.Error().Err(err).Str("job", job.Name).Msg("Maintenance job failed")
		return err
	}
	m.logger.Debug().Str("job", job.Name).Dur("duration", time.Since(start)).Msg("Maintenance job complete")
	return nil
}

func (m *MaintenanceService) String() string {
	return "maintenance"
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
