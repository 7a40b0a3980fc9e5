package events

import (
	"errors"
	"strings"

	"github.com/comunidad-app/backend/internal/models"
)

// ErrMissingFields is returned when a required event field is blank.
var ErrMissingFields = errors.New("name, date, time and location are required")

// ValidateFields checks the fields an admin must fill in. The Repository itself trusts its input;
// handlers call this before Create.
func ValidateFields(f models.EventFields) error {
	for _, v := range []string{f.Name, f.Date, f.Time, f.Location} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingFields
		}
	}
	return nil
}

// ValidatePatch rejects patches that would blank a required field.
func ValidatePatch(p models.EventPatch) error {
	for _, v := range []*string{p.Name, p.Date, p.Time, p.Location} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return ErrMissingFields
		}
	}
	return nil
}

// Matches reports whether query appears (case-insensitively) in the event's name, location or category.
// An empty query matches everything.
func Matches(e models.Event, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, s := range []string{e.Name, e.Location, e.Category} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// Filter returns the events that match query, preserving order.
func Filter(list []models.Event, query string) []models.Event {
	out := make([]models.Event, 0, len(list))
	for _, e := range list {
		if Matches(e, query) {
			out = append(out, e)
		}
	}
	return out
}
