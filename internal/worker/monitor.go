package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"domainstack/internal/monitor"
	"domainstack/pkg/domain"
	"domainstack/pkg/logger"
	"domainstack/pkg/serrors"
	"domainstack/pkg/storage"
)

// MonitorDomainWorker runs one change-detection pass for a tracked domain.
type MonitorDomainWorker struct {
	river.WorkerDefaults[monitor.Args]

	detector *monitor.Detector
}

// NewMonitorDomainWorker constructs a MonitorDomainWorker.
func NewMonitorDomainWorker(detector *monitor.Detector) *MonitorDomainWorker {
	return &MonitorDomainWorker{detector: detector}
}

// Work executes one detection run. A domain removed between scheduling and
// execution cancels the job instead of retrying.
func (w *MonitorDomainWorker) Work(ctx context.Context, job *river.Job[monitor.Args]) error {
	ctx = logger.WithFields(ctx,
		zap.Int64("jobID", job.ID),
		zap.String("trackedDomainID", job.Args.TrackedDomainID.String()))

	result, err := w.detector.DetectChanges(ctx, domain.TrackedDomainID(job.Args.TrackedDomainID))
	if err != nil {
		if errors.Is(err, serrors.ErrNotFound) {
			return river.JobCancel(err) //nolint: wrapcheck
		}

		return fmt.Errorf("could not run change detection: %w", err)
	}

	logger.Info(ctx, "change detection run finished",
		zap.String("skipReason", result.SkipReason),
		zap.Bool("registrationChanges", result.RegistrationChanges),
		zap.Bool("providerChanges", result.ProviderChanges),
		zap.Bool("certificateChanges", result.CertificateChanges))

	return nil
}

// ScheduleRunsWorker fans out one monitoring job per verified domain. Unique
// insert options on monitor.Args make the fan-out safe to repeat while runs
// from a previous tick are still queued.
type ScheduleRunsWorker struct {
	river.WorkerDefaults[monitor.ScheduleRunsArgs]

	storage storage.Storage
}

// NewScheduleRunsWorker constructs a ScheduleRunsWorker.
func NewScheduleRunsWorker(strg storage.Storage) *ScheduleRunsWorker {
	return &ScheduleRunsWorker{storage: strg}
}

// Work enqueues a monitoring run for every verified, non-archived domain.
func (w *ScheduleRunsWorker) Work(ctx context.Context, job *river.Job[monitor.ScheduleRunsArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	tracked, err := w.storage.VerifiedTrackedDomains(ctx)
	if err != nil {
		return fmt.Errorf("could not list verified domains: %w", err)
	}

	enqueued := 0
	for _, t := range tracked {
		created, err := w.storage.AddJob(ctx, monitor.Args{TrackedDomainID: uuid.UUID(t.ID)}, nil)
		if err != nil {
			return fmt.Errorf("could not enqueue monitoring run for %q: %w", t.DomainName, err)
		}
		if created {
			enqueued++
		}
	}

	logger.Info(ctx, "scheduled monitoring runs",
		zap.Int("verifiedDomains", len(tracked)),
		zap.Int("enqueued", enqueued))

	return nil
}
