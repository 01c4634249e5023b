package models

import "time"

// RawEvent represents a standard calendar event as fetched from a source.
// This is an internal representation, independent of any specific calendar provider.
type RawEvent struct {
	ID             string    `json:"id"`              // Unique identifier within its source
	Title          string    `json:"title"`           // Summary or title of the event
	Description    string    `json:"description"`     // Detailed description, empty when absent
	StartTime      time.Time `json:"start_time"`      // Start time of the event
	EndTime        time.Time `json:"end_time"`        // End time of the event
	Location       string    `json:"location"`        // Location of the event
	MeetingLink    string    `json:"meeting_link"`    // Video call URL (Meet, Teams, Zoom)
	Organizer      string    `json:"organizer"`       // Organizer's email
	Attendees      []string  `json:"attendees"`       // Attendee emails or names, duplicates allowed
	IsAllDay       bool      `json:"is_all_day"`      // Date-only event
	IsRecurring    bool      `json:"is_recurring"`    // Instance of a recurring series
	SourceCalendar string    `json:"source_calendar"` // Provider/account, used for logging only
	UID            string    `json:"uid,omitempty"`   // The iCalendar UID, when the provider exposes one
}

// Duration returns the event length, clamped at zero.
func (e RawEvent) Duration() time.Duration {
	d := e.EndTime.Sub(e.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// DurationMinutes returns the whole minutes between start and end, never negative.
func (e RawEvent) DurationMinutes() int {
	return int(e.Duration() / time.Minute)
}

// EnrichedEvent is a RawEvent annotated by the processing pipeline.
type EnrichedEvent struct {
	Event           RawEvent `json:"event"`
	DurationMinutes int      `json:"duration_minutes"`
	AttendeeCount   int      `json:"attendee_count"`
	IsOneOnOne      bool     `json:"is_one_on_one"`
	Tags            []string `json:"tags"`
	Category        Category `json:"category"`
	PriorityScore   float64  `json:"priority_score"`
	Priority        Priority `json:"priority"`
}

// HasTag reports whether tag was inferred for the event.
func (e EnrichedEvent) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
