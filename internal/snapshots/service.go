// Package snapshots copies the event collection to object storage and back.
package snapshots

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/events"
	"github.com/comunidad-app/backend/pkg/kvstore"
	"github.com/comunidad-app/backend/pkg/storage"
)

const (
	contentType = "application/json"
	// maxSnapshotBytes bounds what Restore will read from one object.
	maxSnapshotBytes = 32 << 20
)

// ErrTooLarge is returned when a snapshot object exceeds maxSnapshotBytes.
var ErrTooLarge = errors.New("snapshot too large")

// ObjectStore is the subset of storage.S3 used for snapshots.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// Snapshot describes one captured copy of the collection.
type Snapshot struct {
	Key     string    `json:"key"`
	Reason  string    `json:"reason"`
	Events  int       `json:"events"`
	Bytes   int       `json:"bytes"`
	TakenAt time.Time `json:"takenAt"`
}

// Service captures and restores snapshots.
type Service struct {
	kv      kvstore.Store
	repo    *events.Repository
	objects ObjectStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a snapshot service. kv must be the store the repository writes to.
func NewService(kv kvstore.Store, repo *events.Repository, objects ObjectStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{kv: kv, repo: repo, objects: objects, logger: logger, now: time.Now}
}

// Capture uploads the stored collection as-is to a timestamped key and to the latest key.
// An absent collection is captured as an empty array. Corrupt data is not uploaded.
func (s *Service) Capture(ctx context.Context, reason string) (*Snapshot, error) {
	raw, ok, err := s.kv.Get(ctx, events.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	if !ok || len(raw) == 0 {
		raw = []byte("[]")
	}
	list, err := events.Decode(raw)
	if err != nil {
		return nil, err
	}

	takenAt := s.now().UTC()
	snap := &Snapshot{
		Key:     storage.SnapshotKey(takenAt),
		Reason:  reason,
		Events:  len(list),
		Bytes:   len(raw),
		TakenAt: takenAt,
	}
	for _, key := range []string{snap.Key, storage.LatestSnapshotKey} {
		if err := s.objects.Upload(ctx, key, contentType, bytes.NewReader(raw), int64(len(raw))); err != nil {
			return nil, err
		}
	}
	s.logger.Info("snapshot captured",
		zap.String("key", snap.Key),
		zap.String("reason", reason),
		zap.Int("events", snap.Events),
	)
	return snap, nil
}

// Restore replaces the collection with the snapshot at key (latest when key is empty) and returns
// the number of events restored.
func (s *Service) Restore(ctx context.Context, key string) (int, error) {
	if key == "" {
		key = storage.LatestSnapshotKey
	}
	body, err := s.objects.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, maxSnapshotBytes+1))
	if err != nil {
		return 0, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if len(raw) > maxSnapshotBytes {
		return 0, ErrTooLarge
	}
	list, err := events.Decode(raw)
	if err != nil {
		return 0, err
	}
	if err := s.repo.Replace(ctx, list); err != nil {
		return 0, err
	}
	s.logger.Warn("collection restored from snapshot", zap.String("key", key), zap.Int("events", len(list)))
	return len(list), nil
}

// DownloadURL presigns a GET for key (latest when empty).
func (s *Service) DownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		key = storage.LatestSnapshotKey
	}
	return s.objects.PresignGet(ctx, key)
}
