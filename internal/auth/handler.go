package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/middleware"
	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/response"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"` // optional, defaults to user
	Passcode string `json:"passcode"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, token, err := h.svc.Login(c.Request.Context(), req.Name, models.Role(req.Role), req.Passcode)
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidRole):
		response.BadRequest(c, err.Error())
		return
	case errors.Is(err, ErrNotAdmin):
		response.Forbidden(c, err.Error())
		return
	case errors.Is(err, ErrBadPasscode):
		response.Unauthorized(c, err.Error())
		return
	case err != nil:
		h.logger.Error("login failed", zap.Error(err))
		response.Internal(c, "failed to sign in")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: *user})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.Internal(c, "failed to sign out")
		return
	}
	response.NoContent(c)
}

// Me handles GET /auth/me. Returns the user the caller's token was issued to.
func (h *Handler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	response.OK(c, user)
}

// Session handles GET /session. Returns the stored current user.
func (h *Handler) Session(c *gin.Context) {
	user, err := h.svc.Current(c.Request.Context())
	if err != nil {
		h.logger.Error("read session failed", zap.Error(err))
		response.Internal(c, "failed to read session")
		return
	}
	if user == nil {
		response.NotFound(c, "no user signed in")
		return
	}
	response.OK(c, user)
}
