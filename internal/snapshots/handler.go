package snapshots

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/events"
	"github.com/comunidad-app/backend/pkg/queue"
	"github.com/comunidad-app/backend/pkg/response"
)

// Enqueuer schedules a snapshot job.
type Enqueuer interface {
	EnqueueSnapshot(ctx context.Context, payload queue.SnapshotPayload) (string, error)
}

// RestoreRequest is the body for POST /snapshots/restore.
type RestoreRequest struct {
	Key string `json:"key"` // empty restores the latest snapshot
}

// Handler handles snapshot HTTP endpoints. Admin only (enforced by route middleware).
type Handler struct {
	svc    *Service
	jobs   Enqueuer
	logger *zap.Logger
}

// NewHandler creates a snapshots handler. With jobs nil, POST /snapshots captures inline.
func NewHandler(svc *Service, jobs Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, jobs: jobs, logger: logger}
}

// Create handles POST /snapshots.
func (h *Handler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	if h.jobs != nil {
		id, err := h.jobs.EnqueueSnapshot(ctx, queue.SnapshotPayload{Reason: "manual"})
		if err != nil {
			h.logger.Error("enqueue snapshot failed", zap.Error(err))
			response.ServiceUnavailable(c, "failed to schedule snapshot")
			return
		}
		response.Accepted(c, gin.H{"job_id": id})
		return
	}
	snap, err := h.svc.Capture(ctx, "manual")
	if err != nil {
		events.WriteError(c, h.logger, err, "failed to capture snapshot")
		return
	}
	response.Created(c, snap)
}

// Restore handles POST /snapshots/restore.
func (h *Handler) Restore(c *gin.Context) {
	var req RestoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	n, err := h.svc.Restore(c.Request.Context(), req.Key)
	switch {
	case errors.Is(err, events.ErrCorruptData), errors.Is(err, ErrTooLarge):
		response.BadRequest(c, "snapshot is not a valid event collection")
		return
	case err != nil:
		h.logger.Error("restore snapshot failed", zap.Error(err), zap.String("key", req.Key))
		response.Internal(c, "failed to restore snapshot")
		return
	}
	response.OK(c, gin.H{"restored": n})
}

// DownloadURL handles GET /snapshots/url?key=.
func (h *Handler) DownloadURL(c *gin.Context) {
	url, err := h.svc.DownloadURL(c.Request.Context(), c.Query("key"))
	if err != nil {
		h.logger.Error("presign snapshot failed", zap.Error(err))
		response.Internal(c, "failed to generate download url")
		return
	}
	response.OK(c, gin.H{"url": url})
}
