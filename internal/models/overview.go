package models

// EventSummary is one row of the admin history list.
type EventSummary struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Category string     `json:"category,omitempty"`
	Date     string     `json:"date"`
	Time     string     `json:"time"`
	Location string     `json:"location"`
	IsPast   bool       `json:"isPast"`
	Stats    EventStats `json:"stats"`
}

// Overview aggregates the whole collection for the admin dashboard.
type Overview struct {
	TotalEvents         int            `json:"totalEvents"`
	Upcoming            int            `json:"upcoming"`
	Finished            int            `json:"finished"`
	TotalAttendances    int            `json:"totalAttendances"`
	AvgCommentsPerEvent float64        `json:"avgCommentsPerEvent"`
	Events              []EventSummary `json:"events"`
}
