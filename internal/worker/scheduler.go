package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/queue"
)

const pendingSize = 128

// Enqueuer schedules snapshot jobs.
type Enqueuer interface {
	EnqueueSnapshot(ctx context.Context, payload queue.SnapshotPayload) (string, error)
}

// SnapshotScheduler enqueues a snapshot job for every change to the collection. It implements
// events.Listener; OnEventChange only buffers and Run does the Redis calls.
type SnapshotScheduler struct {
	jobs    Enqueuer
	logger  *zap.Logger
	pending chan queue.SnapshotPayload
}

// NewSnapshotScheduler creates a scheduler.
func NewSnapshotScheduler(jobs Enqueuer, logger *zap.Logger) *SnapshotScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotScheduler{jobs: jobs, logger: logger, pending: make(chan queue.SnapshotPayload, pendingSize)}
}

// OnEventChange implements events.Listener.
func (s *SnapshotScheduler) OnEventChange(_ context.Context, ch models.EventChange) {
	payload := queue.SnapshotPayload{Reason: string(ch.Op), EventID: ch.EventID}
	select {
	case s.pending <- payload:
	default:
		s.logger.Warn("snapshot scheduler full, dropping change", zap.String("op", string(ch.Op)))
	}
}

// Run enqueues buffered changes until ctx is done.
func (s *SnapshotScheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-s.pending:
			if _, err := s.jobs.EnqueueSnapshot(ctx, p); err != nil {
				s.logger.Error("enqueue snapshot failed", zap.Error(err), zap.String("reason", p.Reason))
			}
		}
	}
}
