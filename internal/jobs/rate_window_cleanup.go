package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/pkg/logger"
)

// DefaultRateWindowRetention keeps expired windows for an hour past expiry.
const DefaultRateWindowRetention = time.Hour

// ExpiredWindowDeleter removes rate windows that expired before cutoff.
type ExpiredWindowDeleter interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// RateWindowCleanupArgs is a periodic job that prunes expired rate_windows rows.
type RateWindowCleanupArgs struct{}

// Kind returns the job kind identifier.
func (RateWindowCleanupArgs) Kind() string { return "rate_window_cleanup" }

// InsertOpts keeps at most one cleanup job per interval.
func (RateWindowCleanupArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: RateWindowCleanupInterval,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// RateWindowCleanupWorker deletes windows older than the retention period.
type RateWindowCleanupWorker struct {
	river.WorkerDefaults[RateWindowCleanupArgs]
	store     ExpiredWindowDeleter
	retention time.Duration
	now       func() time.Time
}

// NewRateWindowCleanupWorker creates a cleanup worker. Non-positive retention
// falls back to DefaultRateWindowRetention.
func NewRateWindowCleanupWorker(store ExpiredWindowDeleter, retention time.Duration) *RateWindowCleanupWorker {
	if retention <= 0 {
		retention = DefaultRateWindowRetention
	}
	return &RateWindowCleanupWorker{
		store:     store,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Work removes expired rate windows.
func (w *RateWindowCleanupWorker) Work(ctx context.Context, _ *river.Job[RateWindowCleanupArgs]) error {
	if w == nil || w.store == nil {
		return fmt.Errorf("rate window cleanup worker is not initialized")
	}

	cutoff := w.now().Add(-w.retention)
	deleted, err := w.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete rate windows expired before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	logger.Info("rate window cleanup completed",
		zap.Int64("deleted_rows", deleted),
		zap.String("cutoff", cutoff.Format(time.RFC3339)),
		zap.Duration("retention", w.retention),
	)
	return nil
}
