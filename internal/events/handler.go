package events

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/analytics"
	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/response"
)

// Detail is the JSON shape for GET /events/:id.
type Detail struct {
	Event  *models.Event     `json:"event"`
	Stats  models.EventStats `json:"stats"`
	IsPast bool              `json:"isPast"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger, now: time.Now}
}

// List handles GET /events?q=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		WriteError(c, h.logger, err, "failed to list events")
		return
	}
	response.OK(c, Filter(list, c.Query("q")))
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	e, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, h.logger, err, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, Detail{Event: e, Stats: analytics.Compute(e), IsPast: analytics.IsPast(e, h.now())})
}

// Create handles POST /events. Admin only (enforced by route middleware).
func (h *Handler) Create(c *gin.Context) {
	var req models.EventFields
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := ValidateFields(req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	e, err := h.repo.Create(c.Request.Context(), req)
	if err != nil {
		WriteError(c, h.logger, err, "failed to create event")
		return
	}
	response.Created(c, e)
}

// Update handles PATCH /events/:id. Admin only.
func (h *Handler) Update(c *gin.Context) {
	var patch models.EventPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := ValidatePatch(patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	e, err := h.repo.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		WriteError(c, h.logger, err, "failed to update event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id. Admin only.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		WriteError(c, h.logger, err, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// Clear handles DELETE /events. Admin only.
func (h *Handler) Clear(c *gin.Context) {
	if err := h.repo.Clear(c.Request.Context()); err != nil {
		WriteError(c, h.logger, err, "failed to clear events")
		return
	}
	response.NoContent(c)
}

// WriteError logs err and answers 500, with a specific message when the stored collection is corrupt.
func WriteError(c *gin.Context, logger *zap.Logger, err error, msg string) {
	logger.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	if errors.Is(err, ErrCorruptData) {
		response.Internal(c, "stored event data is corrupt")
		return
	}
	response.Internal(c, msg)
}
