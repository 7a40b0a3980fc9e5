// Package bootstrap opens the backing services shared by the server and worker binaries.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/comunidad-app/backend/config"
	"github.com/comunidad-app/backend/internal/metrics"
	"github.com/comunidad-app/backend/pkg/database"
	"github.com/comunidad-app/backend/pkg/kvstore"
	"github.com/comunidad-app/backend/pkg/redis"
)

// Backends holds the opened connections. Redis is nil when REDIS_ADDR is empty.
type Backends struct {
	Store kvstore.Store
	Redis *redis.Client
	close []func()
}

// Close releases every connection in reverse order of opening.
func (b *Backends) Close() {
	for i := len(b.close) - 1; i >= 0; i-- {
		b.close[i]()
	}
}

// Open connects to Redis (when configured) and the storage driver, and returns an instrumented store.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			return nil, err
		}
		b.Redis = rdb
		b.close = append(b.close, func() { _ = rdb.Close() })
	}

	var store kvstore.Store
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		store = kvstore.NewMemory()
	case config.StorageRedis:
		if b.Redis == nil {
			b.Close()
			return nil, fmt.Errorf("redis storage without redis client")
		}
		store = kvstore.NewRedis(b.Redis.Client, cfg.Storage.KeyPrefix)
	case config.StoragePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.close = append(b.close, pool.Close)
		if err := database.Migrate(ctx, pool, logger); err != nil {
			b.Close()
			return nil, err
		}
		store = kvstore.NewPostgres(pool)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	logger.Info("storage ready", zap.String("driver", cfg.Storage.Driver))
	b.Store = metrics.InstrumentStore(store, cfg.Storage.Driver)
	return b, nil
}
