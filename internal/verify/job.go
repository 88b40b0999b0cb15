package verify

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// VerifyArgs is the payload of the automatic verification job enqueued when a
// domain is added. The job re-attempts verification on a widening snooze
// schedule until it succeeds or the 30-day window closes.
type VerifyArgs struct {
	TrackedDomainID uuid.UUID `json:"trackedDomainId" river:"unique"`
}

// Kind returns the River job kind used to register and dispatch the
// verification worker.
func (VerifyArgs) Kind() string { return "VerifyDomainJob" }

// InsertOpts keeps at most one live verification job per domain; manual
// triggers run inline and never enqueue a second job.
func (VerifyArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// GraceSweepArgs is the payload of the periodic sweep that re-validates
// verified domains and drives the grace period.
type GraceSweepArgs struct{}

func (GraceSweepArgs) Kind() string { return "GraceSweepJob" }

func (GraceSweepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
