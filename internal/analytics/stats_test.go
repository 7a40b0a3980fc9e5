package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/comunidad-app/backend/internal/models"
)

func TestCompute_AverageRating(t *testing.T) {
	e := &models.Event{
		Comments: []models.Comment{{Rating: 4}, {Rating: 5}, {Rating: 3}},
	}
	assert.Equal(t, 4.0, Compute(e).AvgRating)
}

func TestCompute_NoCommentsIsZero(t *testing.T) {
	stats := Compute(&models.Event{})
	assert.Equal(t, models.EventStats{TotalConfirmed: 0, TotalAttended: 0, AvgRating: 0}, stats)
}

func TestCompute_NilEvent(t *testing.T) {
	assert.Equal(t, models.EventStats{}, Compute(nil))
}

func TestCompute_ConfirmedCountsEveryRecord(t *testing.T) {
	e := &models.Event{
		Attendees: []models.Attendance{
			{UserID: "1", Status: models.StatusConfirmed},
			{UserID: "2", Status: models.StatusAttended},
			{UserID: "3", Status: models.StatusNoShow},
			{UserID: "4", Status: models.StatusAttended},
		},
	}
	stats := Compute(e)
	assert.Equal(t, 4, stats.TotalConfirmed)
	assert.Equal(t, 2, stats.TotalAttended)
}

func TestIsPast(t *testing.T) {
	loc := time.FixedZone("CLT", -3*3600)
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, loc)

	assert.True(t, IsPast(&models.Event{Date: "2026-10-17"}, now))
	assert.False(t, IsPast(&models.Event{Date: "2026-10-18"}, now), "today is not past")
	assert.False(t, IsPast(&models.Event{Date: "2026-12-01"}, now))
	assert.False(t, IsPast(&models.Event{Date: "mañana"}, now))
	assert.False(t, IsPast(&models.Event{}, now))
	assert.False(t, IsPast(nil, now))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	list := []models.Event{
		{
			ID: "1", Name: "Pasado", Date: "2026-01-10",
			Attendees: []models.Attendance{{UserID: "a"}, {UserID: "b", Status: models.StatusAttended}},
			Comments:  []models.Comment{{Rating: 5}, {Rating: 3}},
		},
		{ID: "2", Name: "Futuro", Date: "2026-11-01", Attendees: []models.Attendance{{UserID: "a"}}},
		{ID: "3", Name: "Sin fecha", Date: ""},
	}

	o := Summarize(list, now)
	assert.Equal(t, 3, o.TotalEvents)
	assert.Equal(t, 1, o.Finished)
	assert.Equal(t, 1, o.Upcoming)
	assert.Equal(t, 3, o.TotalAttendances)
	assert.InDelta(t, 2.0/3.0, o.AvgCommentsPerEvent, 1e-9)
	if assert.Len(t, o.Events, 3) {
		assert.True(t, o.Events[0].IsPast)
		assert.Equal(t, 4.0, o.Events[0].Stats.AvgRating)
		assert.False(t, o.Events[1].IsPast)
	}
}

func TestSummarize_Empty(t *testing.T) {
	o := Summarize(nil, time.Now())
	assert.Equal(t, 0, o.TotalEvents)
	assert.Equal(t, 0.0, o.AvgCommentsPerEvent)
	assert.NotNil(t, o.Events)
}
