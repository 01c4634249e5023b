package processor

import (
	"meetprep/internal/models"
)

// Filter removes events that need no preparation, keeping relative order.
// An event is dropped when any rule matches:
//  1. all-day, when ExcludeAllDay is set
//  2. shorter than MinDurationMinutes
//  3. fewer attendees than MinAttendees
//  4. title matches an exclusion pattern
func (p *Processor) Filter(events []models.RawEvent) []models.RawEvent {
	filtered := make([]models.RawEvent, 0, len(events))
	for _, event := range events {
		if reason, drop := p.dropReason(event); drop {
			p.logger.Debug("Filtered event.", "reason", reason, "title", event.Title, "source", event.SourceCalendar)
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}

func (p *Processor) dropReason(event models.RawEvent) (string, bool) {
	if p.cfg.ExcludeAllDay && event.IsAllDay {
		return "all-day", true
	}
	if event.DurationMinutes() < p.cfg.MinDurationMinutes {
		return "too short", true
	}
	if len(event.Attendees) < p.cfg.MinAttendees {
		return "too few attendees", true
	}
	if p.matcher.Match(event.Title) {
		return "pattern match", true
	}
	return "", false
}
