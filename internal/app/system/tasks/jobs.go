package tasks

import (
	"context"
	"time"

	jobstore "github.com/dalemusser/filesmanager/internal/app/store/jobs"
	"go.uber.org/zap"
)

// StaleJobRequeueJob puts background jobs abandoned by a dead worker back on
// their queue so they are delivered again.
func StaleJobRequeueJob(store *jobstore.Store, threshold time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "stale-job-requeue",
		Interval: time.Minute,
		Run: func(ctx context.Context) error {
			n, err := store.RequeueStaleRunning(ctx, threshold)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("re-queued stale running jobs", zap.Int64("count", n))
			}
			return nil
		},
	}
}

// JobRetentionJob deletes finished background jobs older than retention.
func JobRetentionJob(store *jobstore.Store, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "job-retention",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			deleted, err := store.DeleteOlderThan(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("deleted old finished jobs", zap.Int64("count", deleted))
			}
			return nil
		},
	}
}
