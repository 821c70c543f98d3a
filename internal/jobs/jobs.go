// Package jobs defines River job types for periodic maintenance.
package jobs

import (
	"time"

	"github.com/riverqueue/river"
)

// RegisterWorkers adds every maintenance worker to workers.
func RegisterWorkers(workers *river.Workers, cleanup *RateWindowCleanupWorker) {
	if cleanup != nil {
		river.AddWorker(workers, cleanup)
	}
}

// PeriodicJobs returns the periodic schedule for the registered workers.
func PeriodicJobs(cleanup *RateWindowCleanupWorker) []*river.PeriodicJob {
	if cleanup == nil {
		return nil
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(RateWindowCleanupInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return RateWindowCleanupArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// RateWindowCleanupInterval is how often expired windows are swept.
const RateWindowCleanupInterval = time.Hour
