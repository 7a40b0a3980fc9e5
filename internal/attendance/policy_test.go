package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/comunidad-app/backend/internal/models"
)

func TestValidateComment(t *testing.T) {
	text, err := ValidateComment(3, "  muy bueno ")
	assert.NoError(t, err)
	assert.Equal(t, "muy bueno", text)

	_, err = ValidateComment(0, "x")
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = ValidateComment(6, "x")
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = ValidateComment(5, "   ")
	assert.ErrorIs(t, err, ErrEmptyComment)
}

func TestCanComment(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	e := &models.Event{
		Date:      "2026-10-20",
		Attendees: []models.Attendance{{UserID: "u1", Status: models.StatusConfirmed}},
	}

	assert.NoError(t, CanComment(e, "u1", now))
	assert.ErrorIs(t, CanComment(e, "u2", now), ErrNotAttendee)

	e.Date = "2026-10-01"
	assert.ErrorIs(t, CanComment(e, "u1", now), ErrEventFinished)
}

func TestCanConfirm(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	assert.NoError(t, CanConfirm(&models.Event{Date: "2026-10-18"}, "u1", now))
	assert.ErrorIs(t, CanConfirm(&models.Event{Date: "2026-10-17"}, "u1", now), ErrEventFinished)

	onRoster := &models.Event{
		Date:      "2026-10-20",
		Attendees: []models.Attendance{{UserID: "u1", Status: models.StatusAttended}},
	}
	assert.ErrorIs(t, CanConfirm(onRoster, "u1", now), ErrAlreadyConfirmed)
	assert.NoError(t, CanConfirm(onRoster, "u2", now))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("no-show")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusNoShow, st)

	_, err = ParseStatus("maybe")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
