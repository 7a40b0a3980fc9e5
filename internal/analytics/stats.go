package analytics

import (
	"time"

	"github.com/comunidad-app/backend/internal/models"
)

// Compute derives stats from an event already in memory. It never fails: a nil event or nil
// roster/comments count as empty.
//
// TotalConfirmed counts every attendance record regardless of status; the mobile client has
// always shown it as the attendee count.
func Compute(e *models.Event) models.EventStats {
	if e == nil {
		return models.EventStats{}
	}
	stats := models.EventStats{TotalConfirmed: len(e.Attendees)}
	for _, a := range e.Attendees {
		if a.Status == models.StatusAttended {
			stats.TotalAttended++
		}
	}
	if len(e.Comments) > 0 {
		sum := 0
		for _, c := range e.Comments {
			sum += c.Rating
		}
		stats.AvgRating = float64(sum) / float64(len(e.Comments))
	}
	return stats
}

// IsPast reports whether the event's date is before the day containing now, in now's location.
// Events with an unparseable date are never past.
func IsPast(e *models.Event, now time.Time) bool {
	if e == nil {
		return false
	}
	d, ok := e.ParseDate(now.Location())
	if !ok {
		return false
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	return d.Before(today)
}

// Summarize builds the admin overview for the whole collection.
func Summarize(list []models.Event, now time.Time) models.Overview {
	out := models.Overview{
		TotalEvents: len(list),
		Events:      make([]models.EventSummary, 0, len(list)),
	}
	comments := 0
	for i := range list {
		e := &list[i]
		stats := Compute(e)
		past := IsPast(e, now)
		if _, ok := e.ParseDate(now.Location()); ok {
			if past {
				out.Finished++
			} else {
				out.Upcoming++
			}
		}
		out.TotalAttendances += stats.TotalConfirmed
		comments += len(e.Comments)
		out.Events = append(out.Events, models.EventSummary{
			ID:       e.ID,
			Name:     e.Name,
			Category: e.Category,
			Date:     e.Date,
			Time:     e.Time,
			Location: e.Location,
			IsPast:   past,
			Stats:    stats,
		})
	}
	if len(list) > 0 {
		out.AvgCommentsPerEvent = float64(comments) / float64(len(list))
	}
	return out
}
