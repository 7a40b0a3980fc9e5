package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/internal/snapshots"
	"github.com/comunidad-app/backend/pkg/queue"
)

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
	dlq     []*queue.Job
}

func (q *fakeQueue) Dequeue(ctx context.Context, _ time.Duration) (*queue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		q.mu.Unlock()
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Millisecond):
		}
		q.mu.Lock()
		return nil, nil
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, nil
}

func (q *fakeQueue) Retry(_ context.Context, job *queue.Job) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.Attempt++
	if job.Attempt >= queue.MaxRetries {
		q.dlq = append(q.dlq, job)
		return true, nil
	}
	q.retried = append(q.retried, job)
	q.jobs = append(q.jobs, job)
	return false, nil
}

type fakeCapturer struct {
	mu      sync.Mutex
	reasons []string
	err     error
}

func (c *fakeCapturer) Capture(_ context.Context, reason string) (*snapshots.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
	if c.err != nil {
		return nil, c.err
	}
	return &snapshots.Snapshot{Key: "snapshots/x.json", Reason: reason}, nil
}

func job(t *testing.T, reason string) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.SnapshotPayload{Reason: reason})
	require.NoError(t, err)
	return &queue.Job{ID: reason, Type: queue.JobTypeSnapshot, Payload: body}
}

func TestProcess(t *testing.T) {
	capt := &fakeCapturer{}
	p := NewSnapshotProcessor(&fakeQueue{}, capt, nil)

	require.NoError(t, p.Process(context.Background(), job(t, "updated")))
	assert.Equal(t, []string{"updated"}, capt.reasons)

	err := p.Process(context.Background(), &queue.Job{Type: "email"})
	assert.Error(t, err)

	err = p.Process(context.Background(), &queue.Job{Type: queue.JobTypeSnapshot, Payload: json.RawMessage(`"x"`)})
	assert.Error(t, err)
}

func TestRun_ProcessesUntilCancelled(t *testing.T) {
	q := &fakeQueue{jobs: []*queue.Job{job(t, "a"), job(t, "b")}}
	capt := &fakeCapturer{}
	p := NewSnapshotProcessor(q, capt, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		capt.mu.Lock()
		defer capt.mu.Unlock()
		return len(capt.reasons) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_FailingJobEndsInDLQ(t *testing.T) {
	q := &fakeQueue{jobs: []*queue.Job{job(t, "a")}}
	capt := &fakeCapturer{err: errors.New("s3 down")}
	p := NewSnapshotProcessor(q, capt, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.dlq) == 1
	}, 2*time.Second, 5*time.Millisecond)

	q.mu.Lock()
	assert.Len(t, q.retried, queue.MaxRetries-1)
	q.mu.Unlock()
}

type recordingEnqueuer struct {
	mu       sync.Mutex
	payloads []queue.SnapshotPayload
}

func (e *recordingEnqueuer) EnqueueSnapshot(_ context.Context, p queue.SnapshotPayload) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads = append(e.payloads, p)
	return "id", nil
}

func TestScheduler_EnqueuesOnePerChange(t *testing.T) {
	jobs := &recordingEnqueuer{}
	s := NewSnapshotScheduler(jobs, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.OnEventChange(ctx, models.EventChange{Op: models.ChangeCreated, EventID: "e1"})
	s.OnEventChange(ctx, models.EventChange{Op: models.ChangeCleared})

	assert.Eventually(t, func() bool {
		jobs.mu.Lock()
		defer jobs.mu.Unlock()
		return len(jobs.payloads) == 2
	}, 2*time.Second, 5*time.Millisecond)

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	assert.Equal(t, queue.SnapshotPayload{Reason: "created", EventID: "e1"}, jobs.payloads[0])
	assert.Equal(t, "cleared", jobs.payloads[1].Reason)
}
