// Package main runs the background snapshot worker: it drains the Redis job queue and copies the
// event collection to S3.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/comunidad-app/backend/config"
	"github.com/comunidad-app/backend/internal/bootstrap"
	"github.com/comunidad-app/backend/internal/events"
	"github.com/comunidad-app/backend/internal/snapshots"
	"github.com/comunidad-app/backend/internal/worker"
	"github.com/comunidad-app/backend/pkg/queue"
	"github.com/comunidad-app/backend/pkg/storage"
)

const shutdownGrace = 10 * time.Second

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Fatal("worker needs a shared store; set STORAGE_DRIVER to redis or postgres")
	}
	if !cfg.SnapshotsEnabled() {
		logger.Fatal("worker needs AWS_S3_SNAPSHOTS_BUCKET")
	}

	ctx := context.Background()
	backends, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}
	defer backends.Close()
	if backends.Redis == nil {
		logger.Fatal("worker needs REDIS_ADDR for the job queue")
	}

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		SnapshotsBucket:      cfg.AWS.SnapshotsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		Endpoint:             cfg.AWS.Endpoint,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	eventRepo := events.NewRepository(backends.Store, logger)
	snapshotSvc := snapshots.NewService(backends.Store, eventRepo, s3Client, logger)
	jobQueue := queue.NewQueue(backends.Redis.Client, logger)
	processor := worker.NewSnapshotProcessor(jobQueue, snapshotSvc, logger)

	logBacklog(ctx, jobQueue, logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		processor.Run(runCtx)
		close(done)
	}()
	<-runCtx.Done()

	// wait for the processor loop to notice the cancellation
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

type backlog interface {
	Pending(ctx context.Context) (int64, error)
	DeadLetters(ctx context.Context) (int64, error)
}

// logBacklog reports queued and dead-lettered jobs at startup.
func logBacklog(ctx context.Context, q backlog, logger *zap.Logger) {
	pending, err := q.Pending(ctx)
	if err != nil {
		logger.Warn("read pending snapshot jobs", zap.Error(err))
	}
	dead, err := q.DeadLetters(ctx)
	if err != nil {
		logger.Warn("read dead-lettered snapshot jobs", zap.Error(err))
	}
	logger.Info("worker started", zap.Int64("pending", pending), zap.Int64("dead_letters", dead))
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
