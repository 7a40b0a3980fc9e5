// Package main runs the community events HTTP server with WebSocket updates and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/comunidad-app/backend/config"
	"github.com/comunidad-app/backend/internal/analytics"
	"github.com/comunidad-app/backend/internal/attendance"
	"github.com/comunidad-app/backend/internal/auth"
	"github.com/comunidad-app/backend/internal/bootstrap"
	"github.com/comunidad-app/backend/internal/events"
	"github.com/comunidad-app/backend/internal/metrics"
	"github.com/comunidad-app/backend/internal/middleware"
	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/internal/realtime"
	"github.com/comunidad-app/backend/internal/session"
	"github.com/comunidad-app/backend/internal/snapshots"
	"github.com/comunidad-app/backend/internal/worker"
	"github.com/comunidad-app/backend/pkg/queue"
	"github.com/comunidad-app/backend/pkg/response"
	"github.com/comunidad-app/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	backends, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}
	defer backends.Close()

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Events
	eventRepo := events.NewRepository(backends.Store, logger, events.WithListener(metrics.ChangeRecorder{}))
	eventHandler := events.NewHandler(eventRepo, logger)
	attendanceSvc := attendance.NewService(eventRepo, logger)
	attendanceHandler := attendance.NewHandler(attendanceSvc, eventRepo, logger)
	analyticsHandler := analytics.NewHandler(eventRepo, events.WriteError, logger)

	// Auth and current-user session
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	sessions := session.NewStore(backends.Store, logger)
	authSvc := auth.NewService(sessions, jwtService, auth.Policy{
		AdminNames:   cfg.Auth.AdminNames,
		PasscodeHash: cfg.Auth.AdminPasscodeHash,
	}, logger)
	authHandler := auth.NewHandler(authSvc, logger)

	// Realtime
	var hub *realtime.Hub
	if backends.Redis != nil {
		pubsub := realtime.NewRedisPubSub(backends.Redis.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}
	eventRepo.AddListener(hub)
	go hub.Run(runCtx)

	// Snapshots (S3 + Redis job queue)
	var snapshotHandler *snapshots.Handler
	if cfg.SnapshotsEnabled() {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			SnapshotsBucket:      cfg.AWS.SnapshotsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
			Endpoint:             cfg.AWS.Endpoint,
		}, logger)
		if err != nil {
			logger.Warn("snapshots disabled", zap.Error(err))
		} else {
			snapshotSvc := snapshots.NewService(backends.Store, eventRepo, s3Client, logger)
			var jobQueue *queue.Queue
			if backends.Redis != nil {
				jobQueue = queue.NewQueue(backends.Redis.Client, logger)
			}
			if jobQueue != nil {
				snapshotHandler = snapshots.NewHandler(snapshotSvc, jobQueue, logger)
				if cfg.Worker.SnapshotOnChange {
					scheduler := worker.NewSnapshotScheduler(jobQueue, logger)
					eventRepo.AddListener(scheduler)
					go scheduler.Run(runCtx)
				}
				if cfg.Worker.InProcess {
					go worker.NewSnapshotProcessor(jobQueue, snapshotSvc, logger).Run(runCtx)
					logger.Info("snapshot worker started in-process")
				}
			} else {
				snapshotHandler = snapshots.NewHandler(snapshotSvc, nil, logger)
			}
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware())

	// Health and metrics
	router.GET("/health", func(c *gin.Context) {
		if backends.Redis != nil {
			if err := backends.Redis.HealthCheck(c.Request.Context()); err != nil {
				response.ServiceUnavailable(c, err.Error())
				return
			}
		}
		response.OK(c, gin.H{"status": "ok", "storage": cfg.Storage.Driver})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth (public)
	router.POST("/auth/login", authHandler.Login)

	// WebSocket: live event updates
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService.Authenticate))

	// Protected API (JWT required)
	admin := middleware.RequireRole(models.RoleAdmin)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/session", authHandler.Session)

		api.GET("/events", eventHandler.List)
		api.GET("/events/:id", eventHandler.Get)
		api.POST("/events", admin, eventHandler.Create)
		api.PATCH("/events/:id", admin, eventHandler.Update)
		api.DELETE("/events/:id", admin, eventHandler.Delete)
		api.DELETE("/events", admin, eventHandler.Clear)

		api.POST("/events/:id/attendance", attendanceHandler.Confirm)
		api.PATCH("/events/:id/attendance/:userId", admin, attendanceHandler.MarkStatus)
		api.POST("/events/:id/comments", attendanceHandler.Comment)

		api.GET("/events/:id/stats", admin, analyticsHandler.EventStats)
		api.GET("/stats/overview", admin, analyticsHandler.Overview)

		if snapshotHandler != nil {
			api.POST("/snapshots", admin, snapshotHandler.Create)
			api.POST("/snapshots/restore", admin, snapshotHandler.Restore)
			api.GET("/snapshots/url", admin, snapshotHandler.DownloadURL)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
