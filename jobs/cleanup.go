package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
)

// DefaultKeyRetention is how long an Idempotency-Key blocks a replay.
const DefaultKeyRetention = 72 * time.Hour

// Cleaner purges idempotency records older than a cutoff.
type Cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// CleanupJob deletes expired idempotency keys.
type CleanupJob struct {
	Cleaner Cleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCleanupJob initialises the cleanup handler.
func NewCleanupJob(cleaner Cleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{Cleaner: cleaner, Logger: logger, Metrics: metrics}
}

// Handle executes a cleanup task. A missing or non-positive retention falls
// back to DefaultKeyRetention.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = DefaultKeyRetention
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	if j.Cleaner == nil {
		return tracker.End(nil)
	}
	if err := j.Cleaner.Cleanup(ctx, retention); err != nil {
		j.Logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("idempotency keys purged", slog.Duration("retention", retention))
	return tracker.End(nil)
}
