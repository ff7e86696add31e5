package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIntegrityCheck replays every balance and stock level from history.
	TaskIntegrityCheck = "books:integrity_check"
	// TaskIdempotencyCleanup purges expired Idempotency-Key records.
	TaskIdempotencyCleanup = "books:idempotency_cleanup"
)

// IntegrityPayload describes an integrity run. Trigger records who asked for
// it ("cron" or "http").
type IntegrityPayload struct {
	Trigger string `json:"trigger"`
}

// NewIntegrityTask constructs an Asynq task.
func NewIntegrityTask(trigger string) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityCheck, data), nil
}

// CleanupPayload carries the retention window for idempotency keys.
type CleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewCleanupTask constructs an idempotency cleanup task.
func NewCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(CleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
