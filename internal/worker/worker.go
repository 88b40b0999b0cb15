// Package worker wires the background jobs to a River client. It hosts the
// verification schedule, the grace sweep, per-domain change detection and the
// periodic fan-out that schedules detection runs.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"

	"domainstack/internal/monitor"
	"domainstack/internal/verify"
	"domainstack/pkg/logger"
	"domainstack/pkg/storage"
)

// Options controls worker pool sizing and periodic job cadence.
type Options struct {
	// MaxWorkers caps concurrent jobs in the default queue.
	MaxWorkers int
	// MonitorInterval is how often detection runs are fanned out over all
	// verified domains.
	MonitorInterval time.Duration
	// GraceSweepInterval is how often verified domains are re-validated.
	GraceSweepInterval time.Duration
}

// Start registers all workers and periodic jobs and starts the River client.
// The returned client should be stopped by the caller on shutdown.
func Start(ctx context.Context,
	dbPool *pgxpool.Pool,
	strg storage.Storage,
	service *verify.Service,
	detector *monitor.Detector,
	options Options) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewVerifyDomainWorker(service, strg))
	river.AddWorker(workers, NewGraceSweepWorker(service))
	river.AddWorker(workers, NewMonitorDomainWorker(detector))
	river.AddWorker(workers, NewScheduleRunsWorker(strg))

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: options.MaxWorkers},
		},
		Workers: workers,
		Logger:  slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(options.MonitorInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return monitor.ScheduleRunsArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(options.GraceSweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return verify.GraceSweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
