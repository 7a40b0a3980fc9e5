package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/response"
)

type staticSource struct {
	list []models.Event
	err  error
}

func (s staticSource) List(context.Context) ([]models.Event, error) { return s.list, s.err }

func (s staticSource) GetByID(_ context.Context, id string) (*models.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.list {
		if s.list[i].ID == id {
			return &s.list[i], nil
		}
	}
	return nil, nil
}

func writeInternal(c *gin.Context, _ *zap.Logger, _ error, msg string) { response.Internal(c, msg) }

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/events/:id/stats", h.EventStats)
	r.GET("/stats/overview", h.Overview)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandler_EventStats(t *testing.T) {
	src := staticSource{list: []models.Event{{
		ID:        "e1",
		Date:      "2030-01-01",
		Attendees: []models.Attendance{{UserID: "u1", Status: models.StatusAttended}},
		Comments:  []models.Comment{{Rating: 4}, {Rating: 5}, {Rating: 3}},
	}}}
	h := NewHandler(src, writeInternal, nil)

	w := serve(h, "/events/e1/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.EventStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.EventStats{TotalConfirmed: 1, TotalAttended: 1, AvgRating: 4}, body.Data)

	assert.Equal(t, http.StatusNotFound, serve(h, "/events/nope/stats").Code)
}

func TestHandler_Overview(t *testing.T) {
	src := staticSource{list: []models.Event{{ID: "e1", Date: "2020-01-01"}, {ID: "e2", Date: "2040-01-01"}}}
	h := NewHandler(src, writeInternal, nil)
	h.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }

	w := serve(h, "/stats/overview")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.Overview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.TotalEvents)
	assert.Equal(t, 1, body.Data.Finished)
	assert.Equal(t, 1, body.Data.Upcoming)
}

func TestHandler_ReadFailure(t *testing.T) {
	h := NewHandler(staticSource{err: errors.New("boom")}, writeInternal, nil)
	assert.Equal(t, http.StatusInternalServerError, serve(h, "/stats/overview").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(h, "/events/e1/stats").Code)
}
