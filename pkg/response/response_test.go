package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func record(fn func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)
	return w
}

func TestEnvelope(t *testing.T) {
	w := record(func(c *gin.Context) { OK(c, gin.H{"id": "e1"}) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":"e1"}}`, w.Body.String())

	w = record(func(c *gin.Context) { NotFound(c, "event not found") })
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"event not found"}`, w.Body.String())

	w = record(func(c *gin.Context) { Accepted(c, gin.H{"job_id": "j"}) })
	assert.Equal(t, http.StatusAccepted, w.Code)
}
