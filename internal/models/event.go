package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// AttendanceStatus is the state of one user's attendance at an event.
type AttendanceStatus string

const (
	StatusConfirmed AttendanceStatus = "confirmed"
	StatusAttended  AttendanceStatus = "attended"
	StatusNoShow    AttendanceStatus = "no-show"
)

// Valid reports whether s is one of the known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusAttended, StatusNoShow:
		return true
	}
	return false
}

// DateLayout is the calendar date format stored in Event.Date.
const DateLayout = "2006-01-02"

// Attendance is a user's record on an event roster, unique per user.
type Attendance struct {
	UserID   string           `json:"userId"`
	UserName string           `json:"userName"`
	Status   AttendanceStatus `json:"status"`
}

// Comment is an immutable rating + text left on an event.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	EventID   string    `json:"eventId"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is a scheduled community gathering. The whole collection is stored as one JSON array.
type Event struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    string       `json:"category,omitempty"`
	Date        string       `json:"date"` // YYYY-MM-DD
	Time        string       `json:"time"` // HH:MM
	Location    string       `json:"location"`
	Attendees   []Attendance `json:"attendees"`
	Comments    []Comment    `json:"comments"`
}

// UnmarshalJSON decodes an event, treating attendees/comments that are missing or not arrays as empty.
// Older payloads were written without those fields.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var raw struct {
		plain
		Attendees json.RawMessage `json:"attendees"`
		Comments  json.RawMessage `json:"comments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event(raw.plain)
	e.Attendees = []Attendance{}
	e.Comments = []Comment{}
	if isArray(raw.Attendees) {
		if err := json.Unmarshal(raw.Attendees, &e.Attendees); err != nil {
			return err
		}
	}
	if isArray(raw.Comments) {
		if err := json.Unmarshal(raw.Comments, &e.Comments); err != nil {
			return err
		}
	}
	return nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// FindAttendee returns the index of userID in the roster, or -1.
func (e *Event) FindAttendee(userID string) int {
	for i := range e.Attendees {
		if e.Attendees[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can't alias the repository's slices.
func (e Event) Clone() Event {
	out := e
	out.Attendees = append([]Attendance{}, e.Attendees...)
	out.Comments = append([]Comment{}, e.Comments...)
	return out
}

// ParseDate parses Event.Date in loc. ok is false when the date is empty or malformed.
func (e *Event) ParseDate(loc *time.Location) (t time.Time, ok bool) {
	if e.Date == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, e.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EventFields are the caller-supplied fields of a new event.
type EventFields struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
}

// EventPatch is a partial update; nil fields are left untouched. ID is never patchable.
type EventPatch struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Category    *string       `json:"category,omitempty"`
	Date        *string       `json:"date,omitempty"`
	Time        *string       `json:"time,omitempty"`
	Location    *string       `json:"location,omitempty"`
	Attendees   *[]Attendance `json:"attendees,omitempty"`
	Comments    *[]Comment    `json:"comments,omitempty"`
}

// Apply merges the patch over e.
func (p EventPatch) Apply(e *Event) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Attendees != nil {
		e.Attendees = append([]Attendance{}, (*p.Attendees)...)
	}
	if p.Comments != nil {
		e.Comments = append([]Comment{}, (*p.Comments)...)
	}
}

// EventStats is derived from an event's roster and comments; never persisted.
type EventStats struct {
	TotalConfirmed int     `json:"totalConfirmed"`
	TotalAttended  int     `json:"totalAttended"`
	AvgRating      float64 `json:"avgRating"`
}

// ChangeOp names what happened to the collection.
type ChangeOp string

const (
	ChangeCreated  ChangeOp = "created"
	ChangeUpdated  ChangeOp = "updated"
	ChangeDeleted  ChangeOp = "deleted"
	ChangeCleared  ChangeOp = "cleared"
	ChangeReplaced ChangeOp = "replaced"
)

// EventChange is emitted after a successful write to the collection.
type EventChange struct {
	Op      ChangeOp `json:"op"`
	EventID string   `json:"eventId,omitempty"`
	Event   *Event   `json:"event,omitempty"`
}
