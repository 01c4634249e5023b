// Package ics converts iCalendar VEVENTs into raw events and reads ICS
// subscription feeds over HTTP.
package ics

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"meetprep/internal/models"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const noTitle = "(No Title)"

// ErrNoStart is returned for a VEVENT without DTSTART.
var ErrNoStart = errors.New("event has no DTSTART")

// Converter maps VEVENTs from one calendar to raw events.
type Converter struct {
	// Source is written to RawEvent.SourceCalendar.
	Source string
	// Feed seeds generated ids for events without a UID.
	Feed string
	// Location resolves floating times and DATE values.
	Location *time.Location
	// SkipCancelled drops STATUS:CANCELLED events.
	SkipCancelled bool
}

// Calendar converts every VEVENT of cal overlapping [from, to].
// Events that cannot be converted are logged and skipped.
func (c Converter) Calendar(logger *slog.Logger, cal *ical.Calendar, from, to time.Time) []models.RawEvent {
	var out []models.RawEvent
	for _, ev := range cal.Events() {
		if c.SkipCancelled && IsCancelled(ev) {
			continue
		}
		raw, err := c.Event(ev)
		if err != nil {
			logger.Debug("Skipping VEVENT", "source", c.Source, "error", err)
			continue
		}
		if raw.StartTime.After(to) || raw.EndTime.Before(from) {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// IsCancelled reports whether the event has STATUS:CANCELLED.
func IsCancelled(ev ical.Event) bool {
	status, _ := ev.Props.Text(ical.PropStatus)
	return strings.EqualFold(status, "CANCELLED")
}

// Event converts a single VEVENT.
func (c Converter) Event(ev ical.Event) (models.RawEvent, error) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}

	startProp := ev.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return models.RawEvent{}, ErrNoStart
	}
	start, err := startProp.DateTime(loc)
	if err != nil {
		return models.RawEvent{}, fmt.Errorf("failed to parse DTSTART: %w", err)
	}
	allDay := isDate(startProp)

	end, err := eventEnd(ev, start, loc)
	if err != nil {
		return models.RawEvent{}, err
	}

	title := strings.TrimSpace(text(ev, ical.PropSummary))
	if title == "" {
		title = noTitle
	}

	uid := strings.TrimSpace(text(ev, ical.PropUID))
	id := uid
	if id == "" {
		seed := c.Feed + "|" + title + "|" + start.Format(time.RFC3339)
		id = "ical-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
	}

	var attendees []string
	for _, p := range ev.Props[ical.PropAttendee] {
		if addr := stripMailto(p.Value); addr != "" {
			attendees = append(attendees, addr)
		}
	}

	var organizer string
	if p := ev.Props.Get(ical.PropOrganizer); p != nil {
		organizer = stripMailto(p.Value)
	}

	return models.RawEvent{
		ID:             id,
		Title:          title,
		Description:    strings.TrimSpace(text(ev, ical.PropDescription)),
		StartTime:      start,
		EndTime:        end,
		Location:       strings.TrimSpace(text(ev, ical.PropLocation)),
		MeetingLink:    urlValue(ev),
		Organizer:      organizer,
		Attendees:      attendees,
		IsAllDay:       allDay,
		IsRecurring:    ev.Props.Get(ical.PropRecurrenceRule) != nil || ev.Props.Get(ical.PropRecurrenceID) != nil,
		SourceCalendar: c.Source,
		UID:            uid,
	}, nil
}

// eventEnd uses DTEND, else DURATION, else one hour after start.
func eventEnd(ev ical.Event, start time.Time, loc *time.Location) (time.Time, error) {
	if p := ev.Props.Get(ical.PropDateTimeEnd); p != nil {
		end, err := p.DateTime(loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse DTEND: %w", err)
		}
		return end, nil
	}
	if p := ev.Props.Get(ical.PropDuration); p != nil {
		d, err := p.Duration()
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse DURATION: %w", err)
		}
		return start.Add(d), nil
	}
	return start.Add(time.Hour), nil
}

func isDate(p *ical.Prop) bool {
	return p.ValueType() == ical.ValueDate || len(p.Value) == len("20060102")
}

func text(ev ical.Event, name string) string {
	v, err := ev.Props.Text(name)
	if err != nil {
		return ""
	}
	return v
}

func urlValue(ev ical.Event) string {
	if p := ev.Props.Get(ical.PropURL); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func stripMailto(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= len("mailto:") && strings.EqualFold(v[:len("mailto:")], "mailto:") {
		v = v[len("mailto:"):]
	}
	return v
}
