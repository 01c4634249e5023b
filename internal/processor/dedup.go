package processor

import (
	"strings"
	"time"
	"unicode/utf8"

	"meetprep/internal/models"
)

// Deduplicate merges events that appear on several calendars.
//
// Two events collide when their normalized titles match and their start times
// floor to the same 5-minute slot. The event with the longer description wins;
// on a tie the earlier one is kept. Output order is the first-occurrence order of
// each key. No other fields are merged: attendee lists are not unioned.
func Deduplicate(events []models.RawEvent) []models.RawEvent {
	return deduplicate(events, nil)
}

// Deduplicate runs the package-level Deduplicate with debug logging.
func (p *Processor) Deduplicate(events []models.RawEvent) []models.RawEvent {
	return deduplicate(events, p)
}

func deduplicate(events []models.RawEvent, p *Processor) []models.RawEvent {
	if len(events) == 0 {
		return []models.RawEvent{}
	}

	index := make(map[string]int, len(events))
	out := make([]models.RawEvent, 0, len(events))
	for _, event := range events {
		key := DedupKey(event)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, event)
			continue
		}
		if descriptionLen(event) > descriptionLen(out[i]) {
			out[i] = event
			if p != nil {
				p.logger.Debug("Dedup replaced with more detailed version.", "title", event.Title, "source", event.SourceCalendar)
			}
		} else if p != nil {
			p.logger.Debug("Dedup skipped duplicate.", "title", event.Title, "source", event.SourceCalendar)
		}
	}
	return out
}

// DedupKey returns normalize(title) + "|" + the start time floored to 5 minutes.
// The start keeps its own zone offset.
func DedupKey(event models.RawEvent) string {
	return NormalizeTitle(event.Title) + "|" + floorTo5Minutes(event.StartTime).Format(time.RFC3339)
}

// NormalizeTitle lowercases, trims and collapses whitespace runs to one space.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

func floorTo5Minutes(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), (t.Minute()/5)*5, 0, 0, t.Location())
}

func descriptionLen(event models.RawEvent) int {
	return utf8.RuneCountInString(event.Description)
}
