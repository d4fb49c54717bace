package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskRecord is the asynq task type carrying one audit entry.
const TaskRecord = "audit:record"

// NewRecordTask encodes entry as an asynq task.
func NewRecordTask(entry Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecord, data), nil
}

// QueueRecorder hands entries to the worker through asynq so request latency
// does not include the insert.
type QueueRecorder struct {
	client *asynq.Client
	queue  string
}

// NewQueueRecorder constructs a QueueRecorder publishing to queue.
func NewQueueRecorder(client *asynq.Client, queue string) *QueueRecorder {
	return &QueueRecorder{client: client, queue: queue}
}

// Record implements Recorder.
func (q *QueueRecorder) Record(ctx context.Context, entry Entry) error {
	if q == nil || q.client == nil {
		return errors.New("audit: queue not configured")
	}
	task, err := NewRecordTask(entry)
	if err != nil {
		return fmt.Errorf("audit: encode task: %w", err)
	}
	opts := []asynq.Option{asynq.MaxRetry(5)}
	if q.queue != "" {
		opts = append(opts, asynq.Queue(q.queue))
	}
	if _, err := q.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("audit: enqueue: %w", err)
	}
	return nil
}

// RecordTaskHandler returns the worker-side handler that persists queued
// entries through recorder.
func RecordTaskHandler(recorder Recorder) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var entry Entry
		if err := json.Unmarshal(t.Payload(), &entry); err != nil {
			return fmt.Errorf("audit: decode task: %v: %w", err, asynq.SkipRetry)
		}
		if entry.UserID == 0 || entry.Action == "" {
			return fmt.Errorf("audit: incomplete entry: %w", asynq.SkipRetry)
		}
		return recorder.Record(ctx, entry)
	}
}
