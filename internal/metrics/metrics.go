// Package metrics holds the Prometheus collectors of the API and worker.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/kvstore"
)

var (
	kvDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kvstore_operation_duration_seconds",
			Help:    "Latency of key-value store operations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"backend", "op"},
	)

	kvErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvstore_errors_total",
			Help: "Failed key-value store operations",
		},
		[]string{"backend", "op"},
	)

	eventChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_changes_total",
			Help: "Successful writes to the event collection",
		},
		[]string{"op"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	liveViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_viewers",
			Help: "Open WebSocket connections watching an event",
		},
	)

	snapshotJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_jobs_total",
			Help: "Snapshot jobs by outcome",
		},
		[]string{"result"},
	)
)

// ViewerJoined and ViewerLeft track open realtime connections.
func ViewerJoined() { liveViewers.Inc() }

func ViewerLeft() { liveViewers.Dec() }

// SnapshotJob records the outcome of one snapshot job: "ok", "retry" or "dead".
func SnapshotJob(result string) { snapshotJobs.WithLabelValues(result).Inc() }

// ChangeRecorder counts event collection writes. It implements events.Listener.
type ChangeRecorder struct{}

// OnEventChange implements events.Listener.
func (ChangeRecorder) OnEventChange(_ context.Context, ch models.EventChange) {
	eventChanges.WithLabelValues(string(ch.Op)).Inc()
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// InstrumentStore wraps s so every call is timed under backend.
func InstrumentStore(s kvstore.Store, backend string) kvstore.Store {
	return &instrumentedStore{next: s, backend: backend}
}

type instrumentedStore struct {
	next    kvstore.Store
	backend string
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	kvDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		kvErrors.WithLabelValues(s.backend, op).Inc()
	}
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	v, ok, err := s.next.Get(ctx, key)
	s.observe("get", start, err)
	return v, ok, err
}

func (s *instrumentedStore) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.next.Set(ctx, key, value)
	s.observe("set", start, err)
	return err
}

func (s *instrumentedStore) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Remove(ctx, key)
	s.observe("remove", start, err)
	return err
}
