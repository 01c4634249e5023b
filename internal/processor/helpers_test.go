package processor_test

import (
	"strings"
	"time"

	"meetprep/internal/config"
	"meetprep/internal/models"
	"meetprep/internal/processor"
)

var baseDay = time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

type eventOpt func(*models.RawEvent)

func withStart(hour, minute int) eventOpt {
	return func(e *models.RawEvent) {
		d := e.EndTime.Sub(e.StartTime)
		e.StartTime = baseDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
		e.EndTime = e.StartTime.Add(d)
	}
}

func withDuration(minutes int) eventOpt {
	return func(e *models.RawEvent) {
		e.EndTime = e.StartTime.Add(time.Duration(minutes) * time.Minute)
	}
}

func withAttendees(a ...string) eventOpt {
	return func(e *models.RawEvent) { e.Attendees = a }
}

func withDescription(d string) eventOpt {
	return func(e *models.RawEvent) { e.Description = d }
}

func withOrganizer(o string) eventOpt {
	return func(e *models.RawEvent) { e.Organizer = o }
}

func withSource(s string) eventOpt {
	return func(e *models.RawEvent) { e.SourceCalendar = s }
}

func allDay() eventOpt {
	return func(e *models.RawEvent) { e.IsAllDay = true }
}

func recurring() eventOpt {
	return func(e *models.RawEvent) { e.IsRecurring = true }
}

// makeEvent builds a 30 minute event at 10:00 on baseDay.
func makeEvent(title string, opts ...eventOpt) models.RawEvent {
	start := baseDay.Add(10 * time.Hour)
	e := models.RawEvent{
		ID:             "evt-" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Title:          title,
		StartTime:      start,
		EndTime:        start.Add(30 * time.Minute),
		SourceCalendar: "primary",
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func newProcessor(cfg config.FilterConfig, opts ...processor.Option) *processor.Processor {
	p, err := processor.New(nil, cfg, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func titles[T models.RawEvent | models.EnrichedEvent](events []T) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		switch v := any(e).(type) {
		case models.RawEvent:
			out = append(out, v.Title)
		case models.EnrichedEvent:
			out = append(out, v.Event.Title)
		}
	}
	return out
}
