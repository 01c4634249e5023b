package icloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"meetprep/internal/models"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// SyncState maps a source event id to the UID of its prep event, so reruns
// overwrite instead of duplicating.
type SyncState map[string]string

// Publisher writes prioritized meetings into a CalDAV prep calendar.
type Publisher struct {
	client    *Client
	path      string
	statePath string
	state     SyncState
	loc       *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

// NewPublisher resolves the prep calendar and loads the UID state file.
func NewPublisher(ctx context.Context, client *Client, calendarName, statePath string, loc *time.Location) (*Publisher, error) {
	path, err := client.FindCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}

	state, err := loadState(statePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
		client.logger.Info("No sync state file found, starting fresh.", "file", statePath)
		state = make(SyncState)
	}

	return &Publisher{
		client:    client,
		path:      path,
		statePath: statePath,
		state:     state,
		loc:       loc,
		logger:    client.logger,
		now:       time.Now,
	}, nil
}

// Publish writes every digest event in order. A failing event is logged and
// the rest continue; the state file is saved once at the end.
func (p *Publisher) Publish(ctx context.Context, digest *models.Digest) error {
	var failed int
	for _, event := range digest.Events {
		if err := p.publishEvent(ctx, event); err != nil {
			failed++
			p.logger.Error("Failed to publish event", "title", event.Event.Title, "error", err)
		}
	}

	if err := saveState(p.statePath, p.state); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("failed to publish %d of %d events", failed, len(digest.Events))
	}
	p.logger.Info("Published prep events.", "count", len(digest.Events))
	return nil
}

func (p *Publisher) publishEvent(ctx context.Context, event models.EnrichedEvent) error {
	uid, ok := p.state[event.Event.ID]
	if !ok {
		uid = prepUID(event.Event)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//meetprep//EN")
	cal.Children = append(cal.Children, toICal(event, uid, p.now(), p.loc))

	if _, err := p.client.caldav.PutCalendarObject(ctx, objectPath(p.path, uid), cal); err != nil {
		return fmt.Errorf("failed to write event to CalDAV server: %w", err)
	}

	p.state[event.Event.ID] = uid
	p.logger.Debug("Published prep event", "title", event.Event.Title, "uid", uid, "priority", event.Priority)
	return nil
}

// prepUID derives the UID of a new prep event. It never equals the source
// UID, since both calendars may live on the same account.
func prepUID(event models.RawEvent) string {
	if event.UID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("meetprep:prep:"+event.UID)).String()
}

// toICal renders a prioritized meeting as a VEVENT.
func toICal(event models.EnrichedEvent, uid string, stamp time.Time, loc *time.Location) *ical.Component {
	raw := event.Event
	if loc == nil {
		loc = time.UTC
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, fmt.Sprintf("[%s] %s", strings.ToUpper(event.Priority.String()), raw.Title))
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	if raw.IsAllDay {
		ve.Props.SetDate(ical.PropDateTimeStart, raw.StartTime.In(loc))
		ve.Props.SetDate(ical.PropDateTimeEnd, raw.EndTime.In(loc))
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, raw.StartTime.In(loc))
		ve.Props.SetDateTime(ical.PropDateTimeEnd, raw.EndTime.In(loc))
	}
	ve.Props.SetText(ical.PropDescription, prepDescription(event))
	ve.Props.SetText(ical.PropCategories, event.Category.String())

	prio := ical.NewProp(ical.PropPriority)
	prio.Value = strconv.Itoa(icalPriority(event.Priority))
	ve.Props.Set(prio)

	if raw.Location != "" {
		ve.Props.SetText(ical.PropLocation, raw.Location)
	}
	if raw.MeetingLink != "" {
		link := ical.NewProp(ical.PropURL)
		link.Value = raw.MeetingLink
		ve.Props.Set(link)
	}
	return ve
}

// icalPriority maps a level onto the RFC 5545 1..9 scale.
func icalPriority(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return 1
	case models.PriorityMedium:
		return 5
	default:
		return 9
	}
}

func prepDescription(event models.EnrichedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", event.Category)
	fmt.Fprintf(&b, "Priority: %s (%.3f)\n", event.Priority, event.PriorityScore)
	if len(event.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(event.Tags, ", "))
	}
	fmt.Fprintf(&b, "Attendees: %d\n", event.AttendeeCount)
	fmt.Fprintf(&b, "Source: %s\n", event.Event.SourceCalendar)
	if event.Event.Description != "" {
		b.WriteString("\n")
		b.WriteString(event.Event.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// loadState loads the sync state from the JSON file.
func loadState(path string) (SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(SyncState)
	}
	return state, nil
}

// saveState saves the sync state to the JSON file.
func saveState(path string, state SyncState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
