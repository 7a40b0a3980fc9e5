package analytics

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/response"
)

// EventSource is the read side of the event repository.
type EventSource interface {
	List(ctx context.Context) ([]models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

// ErrorWriter answers a failed repository read.
type ErrorWriter func(c *gin.Context, logger *zap.Logger, err error, msg string)

// Handler handles GET /events/:id/stats and GET /stats/overview. Admin only (enforced by route middleware).
type Handler struct {
	events   EventSource
	writeErr ErrorWriter
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates an analytics handler.
func NewHandler(events EventSource, writeErr ErrorWriter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{events: events, writeErr: writeErr, logger: logger, now: time.Now}
}

// EventStats handles GET /events/:id/stats.
func (h *Handler) EventStats(c *gin.Context) {
	e, err := h.events.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeErr(c, h.logger, err, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, Compute(e))
}

// Overview handles GET /stats/overview.
func (h *Handler) Overview(c *gin.Context) {
	list, err := h.events.List(c.Request.Context())
	if err != nil {
		h.writeErr(c, h.logger, err, "failed to load events")
		return
	}
	response.OK(c, Summarize(list, h.now()))
}
