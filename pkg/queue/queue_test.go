package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newTestQueue() (*Queue, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	q := NewQueue(db, nil)
	q.newID = func() string { return "job-1" }
	q.now = func() time.Time { return fixedNow }
	return q, mock
}

func marshalJob(t *testing.T, job Job) []byte {
	t.Helper()
	raw, err := json.Marshal(job)
	require.NoError(t, err)
	return raw
}

func snapshotJob(attempt int) Job {
	return Job{
		ID:        "job-1",
		Type:      JobTypeSnapshot,
		Payload:   json.RawMessage(`{"reason":"manual"}`),
		Attempt:   attempt,
		CreatedAt: fixedNow,
	}
}

func TestEnqueueSnapshot(t *testing.T) {
	q, mock := newTestQueue()
	defer mock.ClearExpect()

	mock.ExpectRPush(QueueSnapshots, marshalJob(t, snapshotJob(0))).SetVal(1)

	id, err := q.EnqueueSnapshot(context.Background(), SnapshotPayload{Reason: "manual"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueSnapshot_RedisError(t *testing.T) {
	q, mock := newTestQueue()
	defer mock.ClearExpect()

	mock.ExpectRPush(QueueSnapshots, marshalJob(t, snapshotJob(0))).SetErr(errors.New("connection refused"))

	_, err := q.EnqueueSnapshot(context.Background(), SnapshotPayload{Reason: "manual"})
	assert.Error(t, err)
}

func TestDequeue(t *testing.T) {
	q, mock := newTestQueue()
	defer mock.ClearExpect()

	raw := marshalJob(t, snapshotJob(1))
	mock.ExpectBLPop(time.Second, QueueSnapshots).SetVal([]string{QueueSnapshots, string(raw)})

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, 1, job.Attempt)

	var p SnapshotPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, "manual", p.Reason)
}

func TestDequeue_TimeoutAndGarbage(t *testing.T) {
	q, mock := newTestQueue()
	defer mock.ClearExpect()

	mock.ExpectBLPop(time.Second, QueueSnapshots).RedisNil()
	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)

	mock.ExpectBLPop(time.Second, QueueSnapshots).SetVal([]string{QueueSnapshots, "not json"})
	job, err = q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)

	mock.ExpectBLPop(time.Second, QueueSnapshots).SetErr(redis.ErrClosed)
	_, err = q.Dequeue(context.Background(), time.Second)
	assert.Error(t, err)
}

func TestRetry_RequeuesThenDeadLetters(t *testing.T) {
	q, mock := newTestQueue()
	defer mock.ClearExpect()

	job := snapshotJob(1)
	mock.ExpectRPush(QueueSnapshots, marshalJob(t, snapshotJob(2))).SetVal(1)
	dead, err := q.Retry(context.Background(), &job)
	require.NoError(t, err)
	assert.False(t, dead)
	assert.Equal(t, 2, job.Attempt)

	mock.ExpectRPush(QueueDLQ, marshalJob(t, snapshotJob(3))).SetVal(1)
	dead, err = q.Retry(context.Background(), &job)
	require.NoError(t, err)
	assert.True(t, dead)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPending(t *testing.T) {
	q, mock := newTestQueue()
	defer mock.ClearExpect()

	mock.ExpectLLen(QueueSnapshots).SetVal(4)
	n, err := q.Pending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestDeadLetters(t *testing.T) {
	q, mock := newTestQueue()
	defer mock.ClearExpect()

	mock.ExpectLLen(QueueDLQ).SetVal(2)

	n, err := q.DeadLetters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
