package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"domainstack/internal/monitor"
	"domainstack/internal/verify"
	"domainstack/pkg/domain"
	"domainstack/pkg/logger"
	"domainstack/pkg/serrors"
	"domainstack/pkg/storage"
)

// VerifyDomainWorker drives the automatic verification schedule for one
// tracked domain. Each execution runs a full verification attempt; on
// failure the job snoozes on a widening schedule until either the domain
// verifies or the schedule window closes, at which point the job is
// canceled. A removed domain also cancels the job.
type VerifyDomainWorker struct {
	river.WorkerDefaults[verify.VerifyArgs]

	service *verify.Service
	storage storage.Storage
}

// NewVerifyDomainWorker constructs a VerifyDomainWorker.
func NewVerifyDomainWorker(service *verify.Service, strg storage.Storage) *VerifyDomainWorker {
	return &VerifyDomainWorker{service: service, storage: strg}
}

// Work executes one automatic verification attempt.
func (w *VerifyDomainWorker) Work(ctx context.Context, job *river.Job[verify.VerifyArgs]) error {
	id := domain.TrackedDomainID(job.Args.TrackedDomainID)
	ctx = logger.WithFields(ctx,
		zap.Int64("jobID", job.ID),
		zap.String("trackedDomainID", job.Args.TrackedDomainID.String()))

	tracked, err := w.service.TrackedDomain(ctx, id)
	if err != nil {
		if errors.Is(err, serrors.ErrNotFound) {
			// Domain was removed while the job was queued.
			return river.JobCancel(err) //nolint: wrapcheck
		}

		return fmt.Errorf("could not load tracked domain: %w", err)
	}
	if tracked.Verified {
		return nil
	}

	res, err := w.service.Verify(ctx, id, "")
	if err != nil {
		return fmt.Errorf("could not run verification attempt: %w", err)
	}
	if res.Verified {
		logger.Info(ctx, "domain verified by schedule", zap.String("method", string(res.Method)))

		// Kick off the first monitoring run right away instead of waiting
		// for the periodic scheduler.
		if _, err := w.storage.AddJob(ctx, monitor.Args{TrackedDomainID: job.Args.TrackedDomainID}, nil); err != nil {
			return fmt.Errorf("could not enqueue first monitoring run: %w", err)
		}

		return nil
	}

	now := time.Now().UTC()
	if w.service.WindowExpired(tracked.CreatedAt, now) {
		logger.Info(ctx, "verification window expired, stopping automatic attempts")

		return river.JobCancel(errors.New("verification window expired")) //nolint: wrapcheck
	}

	return river.JobSnooze(w.service.ScheduleFor(job.Attempt)) //nolint: wrapcheck
}

// GraceSweepWorker runs the periodic re-validation of verified domains,
// driving the grace period and eventual revocation.
type GraceSweepWorker struct {
	river.WorkerDefaults[verify.GraceSweepArgs]

	service *verify.Service
}

// NewGraceSweepWorker constructs a GraceSweepWorker.
func NewGraceSweepWorker(service *verify.Service) *GraceSweepWorker {
	return &GraceSweepWorker{service: service}
}

// Work runs one sweep over all verified domains.
func (w *GraceSweepWorker) Work(ctx context.Context, job *river.Job[verify.GraceSweepArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	if err := w.service.Sweep(ctx); err != nil {
		return fmt.Errorf("could not run grace sweep: %w", err)
	}

	return nil
}
