// Package kvstore provides the key-value storage the event collection and session slot live in.
package kvstore

import "context"

// Store gets, sets and removes opaque blobs by key. No transactional guarantee is implied.
type Store interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Backend names accepted by config.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)
