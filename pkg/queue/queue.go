package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueSnapshots is the Redis list key for snapshot jobs.
	QueueSnapshots = "worker:snapshots"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeSnapshot JobType = "snapshot"
)

// SnapshotPayload is the payload for snapshot jobs.
type SnapshotPayload struct {
	Reason  string `json:"reason"`             // e.g. "manual", "updated"
	EventID string `json:"event_id,omitempty"` // event whose change triggered the job
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
	newID  func() string
	now    func() time.Time
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger, newID: uuid.NewString, now: time.Now}
}

// EnqueueSnapshot enqueues a snapshot job and returns its id.
func (q *Queue) EnqueueSnapshot(ctx context.Context, payload SnapshotPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        q.newID(),
		Type:      JobTypeSnapshot,
		Payload:   body,
		Attempt:   0,
		CreatedAt: q.now().UTC(),
	}
	if err := q.push(ctx, QueueSnapshots, &job); err != nil {
		return "", err
	}
	q.logger.Debug("enqueued snapshot job", zap.String("job_id", job.ID), zap.String("reason", payload.Reason))
	return job.ID, nil
}

// Dequeue blocks up to timeout for a job. Returns nil when the wait times out or the entry is not a job.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueSnapshots).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. Once the attempt reaches MaxRetries the job is
// parked on the DLQ instead; dead reports that case.
func (q *Queue) Retry(ctx context.Context, job *Job) (dead bool, err error) {
	job.Attempt++
	target := QueueSnapshots
	if job.Attempt >= MaxRetries {
		target = QueueDLQ
	}
	if err := q.push(ctx, target, job); err != nil {
		q.logger.Error("requeue failed", zap.Error(err), zap.String("job_id", job.ID), zap.String("queue", target))
		return false, err
	}
	if target == QueueDLQ {
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return true, nil
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return false, nil
}

// Pending returns the number of queued snapshot jobs.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueSnapshots).Result()
}

// DeadLetters returns the number of jobs parked on the DLQ.
func (q *Queue) DeadLetters(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueDLQ).Result()
}

func (q *Queue) push(ctx context.Context, list string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, list, raw).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", list, err)
	}
	return nil
}
