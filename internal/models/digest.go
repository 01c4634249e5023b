package models

import "time"

// Digest collects the prioritized meetings of one prep cycle.
type Digest struct {
	Date              time.Time       `json:"date"`
	Events            []EnrichedEvent `json:"events"`
	TotalMeetings     int             `json:"total_meetings"`
	TotalMeetingHours float64         `json:"total_meeting_hours"`
	HighPriorityCount int             `json:"high_priority_count"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// NewDigest builds a Digest from pipeline output, keeping its order.
func NewDigest(date, generatedAt time.Time, events []EnrichedEvent) *Digest {
	d := &Digest{
		Date:          date,
		Events:        events,
		TotalMeetings: len(events),
		GeneratedAt:   generatedAt,
	}
	minutes := 0
	for _, e := range events {
		minutes += e.DurationMinutes
		if e.Priority == PriorityHigh {
			d.HighPriorityCount++
		}
	}
	d.TotalMeetingHours = float64(minutes) / 60.0
	return d
}
