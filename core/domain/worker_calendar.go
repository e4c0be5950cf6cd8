package domain

import (
	"time"

	"github.com/goccy/go-json"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339
)

// EventTime is either a calendar date (all-day events) or an instant.
// The Time of a date-only value carries the date at midnight in the
// location the date was taken in.
type EventTime struct {
	Time     time.Time
	DateOnly bool
}

// DateTimeOf wraps an instant.
func DateTimeOf(t time.Time) EventTime {
	return EventTime{Time: t}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) EventTime {
	y, m, d := t.Date()
	return EventTime{Time: time.Date(y, m, d, 0, 0, 0, 0, t.Location()), DateOnly: true}
}

func (t EventTime) IsZero() bool {
	return t.Time.IsZero()
}

// ISO renders "2006-01-02" for dates and RFC 3339 for instants.
func (t EventTime) ISO() string {
	if t.DateOnly {
		return t.Time.Format(dateLayout)
	}
	return t.Time.Format(dateTimeLayout)
}

// Instant returns the moment the value denotes. Dates resolve to local
// midnight in loc (or in their own location when loc is nil).
func (t EventTime) Instant(loc *time.Location) time.Time {
	if !t.DateOnly {
		return t.Time
	}
	if loc == nil {
		loc = t.Time.Location()
	}
	y, m, d := t.Time.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// MarshalJSON emits {"date": ...} or {"dateTime": ...}.
func (t EventTime) MarshalJSON() ([]byte, error) {
	if t.DateOnly {
		return json.Marshal(map[string]string{"date": t.ISO()})
	}
	return json.Marshal(map[string]string{"dateTime": t.ISO()})
}

// CandidateEvent is a calendar item as returned by the remote mailbox.
type CandidateEvent struct {
	UID      string
	Subject  string
	Location string
	TextBody string
	Start    EventTime
	End      EventTime
	IsAllDay bool
}

// CalendarEvent is the normalized event exposed to consumers.
type CalendarEvent struct {
	Summary     string    `json:"summary"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	UID         string    `json:"uid,omitempty"`
}

// AllDay reports whether the event spans calendar dates.
func (e *CalendarEvent) AllDay() bool {
	return e.Start.DateOnly
}

// NewCalendarEvent normalizes a remote item.
func NewCalendarEvent(c *CandidateEvent) *CalendarEvent {
	return &CalendarEvent{
		Summary:     c.Subject,
		Start:       c.Start,
		End:         c.End,
		Location:    c.Location,
		Description: c.TextBody,
		UID:         c.UID,
	}
}

// SearchSpec names one filtered view of the mailbox calendar.
type SearchSpec struct {
	Name   string `yaml:"name" json:"name"`
	Search string `yaml:"search" json:"search"`
}
