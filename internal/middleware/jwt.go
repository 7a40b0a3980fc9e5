package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserName is the key for the display name in gin context.
	ContextUserName = "user_name"
)

// Authenticator resolves a bearer token to the user it was issued to.
type Authenticator interface {
	Authenticate(token string) (models.User, error)
}

// JWT returns a middleware that validates JWT and sets user claims in context.
func JWT(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		user, err := authn.Authenticate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserRole, string(user.Role))
		c.Set(ContextUserName, user.Name)
		c.Next()
	}
}

// CurrentUser returns the user set by JWT.
func CurrentUser(c *gin.Context) (models.User, bool) {
	id := c.GetString(ContextUserID)
	if id == "" {
		return models.User{}, false
	}
	return models.User{
		ID:   id,
		Name: c.GetString(ContextUserName),
		Role: models.Role(c.GetString(ContextUserRole)),
	}, true
}
