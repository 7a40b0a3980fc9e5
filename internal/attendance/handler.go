package attendance

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/events"
	"github.com/comunidad-app/backend/internal/middleware"
	"github.com/comunidad-app/backend/pkg/response"
)

// StatusRequest is the body for PATCH /events/:id/attendance/:userId.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CommentRequest is the body for POST /events/:id/comments.
type CommentRequest struct {
	Rating int    `json:"rating" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// Handler handles attendance and comment HTTP endpoints.
type Handler struct {
	svc    *Service
	repo   *events.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service, repo *events.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, repo: repo, logger: logger, now: time.Now}
}

// Confirm handles POST /events/:id/attendance for the calling user.
func (h *Handler) Confirm(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	eventID := c.Param("id")
	ctx := c.Request.Context()

	e, err := h.repo.GetByID(ctx, eventID)
	if err != nil {
		events.WriteError(c, h.logger, err, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	if err := CanConfirm(e, user.ID, h.now()); err != nil {
		response.Conflict(c, err.Error())
		return
	}

	updated, err := h.svc.ConfirmAttendance(ctx, eventID, user)
	if err != nil {
		events.WriteError(c, h.logger, err, "failed to confirm attendance")
		return
	}
	if updated == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, updated)
}

// MarkStatus handles PATCH /events/:id/attendance/:userId. Admin only.
func (h *Handler) MarkStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	updated, err := h.svc.MarkAttendanceStatus(c.Request.Context(), c.Param("id"), c.Param("userId"), status)
	if err != nil {
		events.WriteError(c, h.logger, err, "failed to update attendance")
		return
	}
	if updated == nil {
		response.NotFound(c, "event or attendance record not found")
		return
	}
	response.OK(c, updated)
}

// Comment handles POST /events/:id/comments for the calling user.
func (h *Handler) Comment(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	text, err := ValidateComment(req.Rating, req.Text)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	eventID := c.Param("id")
	ctx := c.Request.Context()
	e, err := h.repo.GetByID(ctx, eventID)
	if err != nil {
		events.WriteError(c, h.logger, err, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	if err := CanComment(e, user.ID, h.now()); err != nil {
		if errors.Is(err, ErrNotAttendee) {
			response.Forbidden(c, err.Error())
			return
		}
		response.Conflict(c, err.Error())
		return
	}

	updated, err := h.svc.AddComment(ctx, eventID, user, req.Rating, text)
	if err != nil {
		events.WriteError(c, h.logger, err, "failed to add comment")
		return
	}
	if updated == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.Created(c, updated)
}
