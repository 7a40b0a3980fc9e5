package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/models"
)

type fakeAuthn map[string]models.User

func (f fakeAuthn) Authenticate(token string) (models.User, error) {
	u, ok := f[token]
	if !ok {
		return models.User{}, errors.New("bad token")
	}
	return u, nil
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	authn := fakeAuthn{
		"admin-token": {ID: "a1", Name: "Kevin", Role: models.RoleAdmin},
		"user-token":  {ID: "u1", Name: "Ana", Role: models.RoleUser},
	}
	r := gin.New()
	r.Use(CORS("*"), Logger(zap.NewNop()))
	r.GET("/me", JWT(authn), func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.String(http.StatusOK, u.Name)
	})
	r.GET("/admin", JWT(authn), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "forged").Code)

	w := do(r, http.MethodGet, "/me", "user-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newRouter()
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", "user-token").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin", "admin-token").Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter()
	w := do(r, http.MethodOptions, "/me", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
