package monitor

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// Args is the payload of one change-detection run for a single tracked
// domain.
type Args struct {
	TrackedDomainID uuid.UUID `json:"trackedDomainId" river:"unique"`
}

// Kind returns the River job kind used to register and dispatch the
// monitoring worker.
func (Args) Kind() string { return "MonitorDomainJob" }

// InsertOpts keeps at most one live run per domain, so the periodic
// scheduler can blindly enqueue every verified domain without stacking
// duplicate work.
func (Args) InsertOpts() river.InsertOpts {
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

// ScheduleRunsArgs is the payload of the periodic fan-out job that enqueues
// one Args job per verified, non-archived tracked domain.
type ScheduleRunsArgs struct{}

func (ScheduleRunsArgs) Kind() string { return "ScheduleMonitorRunsJob" }

func (ScheduleRunsArgs) InsertOpts() river.InsertOpts {
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
