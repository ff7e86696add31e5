package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-books/jobs"
)

// jobsCLI wraps manual management helpers for the books queue.
type jobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

func newJobsCLI(opt asynq.RedisClientOpt, queue string) *jobsCLI {
	if queue == "" {
		queue = jobs.QueueDefault
	}
	return &jobsCLI{client: asynq.NewClient(opt), inspector: asynq.NewInspector(opt), queue: queue}
}

func (c *jobsCLI) Close() error {
	return errors.Join(c.inspector.Close(), c.client.Close())
}

// trigger enqueues a job by its short name.
func (c *jobsCLI) trigger(ctx context.Context, name string, retention time.Duration) (*asynq.TaskInfo, error) {
	var task *asynq.Task
	var err error
	switch name {
	case "integrity", jobs.TaskIntegrityCheck:
		task, err = jobs.NewIntegrityTask("cli")
	case "cleanup", jobs.TaskIdempotencyCleanup:
		task, err = jobs.NewCleanupTask(retention)
	default:
		return nil, fmt.Errorf("bookctl: unsupported job %q", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(3))
}

type queueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Failed    int
}

func (c *jobsCLI) stats() (queueStats, error) {
	info, err := c.inspector.GetQueueInfo(c.queue)
	if err != nil {
		return queueStats{}, err
	}
	return queueStats{
		Queue:     info.Queue,
		Pending:   info.Pending,
		Active:    info.Active,
		Scheduled: info.Scheduled,
		Retry:     info.Retry,
		Failed:    info.Failed,
	}, nil
}
