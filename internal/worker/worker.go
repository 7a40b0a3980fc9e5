package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/metrics"
	"github.com/comunidad-app/backend/internal/snapshots"
	"github.com/comunidad-app/backend/pkg/queue"
)

// DequeueTimeout bounds each blocking wait so Run notices cancellation.
const DequeueTimeout = 5 * time.Second

// JobQueue is the subset of queue.Queue the processor uses.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (dead bool, err error)
}

// Capturer takes a snapshot of the event collection.
type Capturer interface {
	Capture(ctx context.Context, reason string) (*snapshots.Snapshot, error)
}

// SnapshotProcessor processes snapshot jobs: read the collection, upload it to S3.
type SnapshotProcessor struct {
	queue   JobQueue
	snaps   Capturer
	logger  *zap.Logger
	backoff time.Duration
}

// NewSnapshotProcessor creates a snapshot job processor.
func NewSnapshotProcessor(q JobQueue, snaps Capturer, logger *zap.Logger) *SnapshotProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotProcessor{queue: q, snaps: snaps, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one snapshot job.
func (p *SnapshotProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeSnapshot {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.SnapshotPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	snap, err := p.snaps.Capture(ctx, payload.Reason)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	p.logger.Info("snapshot job completed",
		zap.String("job_id", job.ID),
		zap.String("key", snap.Key),
		zap.String("event_id", payload.EventID),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *SnapshotProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("snapshot worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			dead, reErr := p.queue.Retry(ctx, job)
			switch {
			case reErr != nil:
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			case dead:
				metrics.SnapshotJob("dead")
			default:
				metrics.SnapshotJob("retry")
			}
			p.sleep(ctx)
			continue
		}
		metrics.SnapshotJob("ok")
	}
}

func (p *SnapshotProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
