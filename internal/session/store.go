// Package session keeps the single signed-in user of the device.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/kvstore"
)

// StorageKey holds the current user as a JSON object.
const StorageKey = "@currentUser"

// ErrCorruptSession is returned when the stored slot is not a JSON user.
var ErrCorruptSession = errors.New("corrupt session data")

// Store reads and writes the current-user slot.
type Store struct {
	kv     kvstore.Store
	logger *zap.Logger
}

// NewStore creates a session store.
func NewStore(kv kvstore.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger}
}

// Current returns the signed-in user, or nil if nobody is signed in.
func (s *Store) Current(ctx context.Context) (*models.User, error) {
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		s.logger.Error("stored session is corrupt", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	return &u, nil
}

// SetCurrent replaces the slot with user.
func (s *Store) SetCurrent(ctx context.Context, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.logger.Info("session started", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Info("session cleared")
	return nil
}
