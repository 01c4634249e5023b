package icloud

import (
	"context"
	"fmt"
	"time"

	"meetprep/internal/ics"
	"meetprep/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

// Source reads events from one iCloud calendar.
type Source struct {
	client *Client
	name   string
	path   string
	conv   ics.Converter
}

// NewSource resolves calendarName and returns a source for it.
func NewSource(ctx context.Context, client *Client, calendarName string, loc *time.Location, skipCancelled bool) (*Source, error) {
	path, err := client.FindCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	name := "icloud-" + calendarName
	return &Source{
		client: client,
		name:   name,
		path:   path,
		conv: ics.Converter{
			Source:        name,
			Feed:          path,
			Location:      loc,
			SkipCancelled: skipCancelled,
		},
	}, nil
}

// Name returns "icloud-<calendar name>".
func (s *Source) Name() string { return s.name }

// FetchEvents runs a calendar-query for VEVENTs overlapping [from, to].
func (s *Source) FetchEvents(ctx context.Context, from, to time.Time) ([]models.RawEvent, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	}

	objects, err := s.client.caldav.QueryCalendar(ctx, s.path, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar %s: %w", s.name, err)
	}

	var events []models.RawEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		events = append(events, s.conv.Calendar(s.client.logger, obj.Data, from, to)...)
	}
	s.client.logger.Info("Fetched events from iCloud calendar.", "calendar", s.name, "count", len(events))
	return events, nil
}
