package attendance

import (
	"errors"
	"strings"
	"time"

	"github.com/comunidad-app/backend/internal/analytics"
	"github.com/comunidad-app/backend/internal/models"
)

// Policy errors returned to API callers.
var (
	ErrInvalidRating    = errors.New("rating must be a number between 1 and 5")
	ErrEmptyComment     = errors.New("comment text is required")
	ErrNotAttendee      = errors.New("only attendees can leave comments")
	ErrEventFinished    = errors.New("event has already finished")
	ErrInvalidStatus    = errors.New("status must be confirmed, attended or no-show")
	ErrAlreadyConfirmed = errors.New("attendance already confirmed")
)

// ValidateComment checks rating bounds and returns the trimmed text.
func ValidateComment(rating int, text string) (string, error) {
	if rating < 1 || rating > 5 {
		return "", ErrInvalidRating
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyComment
	}
	return trimmed, nil
}

// CanConfirm rejects confirmations for finished events and for users already on the roster.
func CanConfirm(e *models.Event, userID string, now time.Time) error {
	if analytics.IsPast(e, now) {
		return ErrEventFinished
	}
	if e.FindAttendee(userID) >= 0 {
		return ErrAlreadyConfirmed
	}
	return nil
}

// CanComment requires the user to be on the roster of an event that has not finished.
func CanComment(e *models.Event, userID string, now time.Time) error {
	if e.FindAttendee(userID) < 0 {
		return ErrNotAttendee
	}
	if analytics.IsPast(e, now) {
		return ErrEventFinished
	}
	return nil
}

// ParseStatus validates a status from the API.
func ParseStatus(s string) (models.AttendanceStatus, error) {
	st := models.AttendanceStatus(strings.TrimSpace(s))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}
