// Package store keeps manually added meetings in a JSON file so they join the
// calendar feeds in every prep run.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"meetprep/internal/models"

	"github.com/google/uuid"
)

// SourceName labels manual meetings in the pipeline.
const SourceName = "manual"

var (
	// ErrMeetingNotFound is returned when no meeting has the given id.
	ErrMeetingNotFound = errors.New("meeting not found")

	// ErrInvalidMeeting is returned for a meeting without a title or with an
	// end before its start.
	ErrInvalidMeeting = errors.New("invalid meeting")

	// ErrUnreadable is returned when the store file cannot be read or parsed.
	// Writes are refused so the file is never replaced by a partial list.
	ErrUnreadable = errors.New("meeting store unreadable")
)

// Meeting is one manually added meeting.
type Meeting struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Attendees   []string        `json:"attendees"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	MeetingLink string          `json:"meeting_link"`
	IsRecurring bool            `json:"is_recurring"`
	Category    models.Category `json:"category,omitempty"`
	Source      string          `json:"source"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Patch holds the fields Update changes. Nil fields are left alone.
type Patch struct {
	Title       *string
	StartTime   *time.Time
	EndTime     *time.Time
	Attendees   []string
	Description *string
	Location    *string
	MeetingLink *string
	IsRecurring *bool
	Category    *models.Category
}

// Store is a JSON-file meeting store. It is safe for concurrent use within
// one process.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// New opens the store at path, creating it as an empty list if missing.
func New(logger *slog.Logger, path string) (*Store, error) {
	s := &Store{path: path, logger: logger, now: time.Now}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.save(nil); err != nil {
			return nil, fmt.Errorf("failed to create meeting store: %w", err)
		}
		logger.Info("Created meeting store.", "path", path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat meeting store: %w", err)
	}
	return s, nil
}

// Name implements the calendar source interface.
func (s *Store) Name() string { return SourceName }

// FetchEvents returns stored meetings starting within [from, to] as raw events.
func (s *Store) FetchEvents(_ context.Context, from, to time.Time) ([]models.RawEvent, error) {
	meetings := s.snapshot()
	var window []Meeting
	for _, m := range meetings {
		if !m.StartTime.Before(from) && !m.StartTime.After(to) {
			window = append(window, m)
		}
	}
	return ToRawEvents(window), nil
}

// Add validates and stores a meeting, assigning its id, source and creation time.
func (s *Store) Add(m Meeting) (Meeting, error) {
	if err := validate(m); err != nil {
		return Meeting{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = uuid.NewString()[:8]
	m.Source = SourceName
	m.CreatedAt = s.now()
	if m.Attendees == nil {
		m.Attendees = []string{}
	}

	meetings, err := s.load()
	if err != nil {
		return Meeting{}, err
	}
	meetings = append(meetings, m)
	if err := s.save(meetings); err != nil {
		return Meeting{}, err
	}
	s.logger.Info("Added meeting.", "id", m.ID, "title", m.Title, "start", m.StartTime.Format(time.RFC3339))
	return m, nil
}

// All returns every stored meeting in insertion order.
func (s *Store) All() ([]Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// snapshot is All for read paths: an unreadable file is logged and read as empty.
func (s *Store) snapshot() []Meeting {
	meetings, err := s.All()
	if err != nil {
		s.logger.Error("Reading meeting store as empty", "path", s.path, "error", err)
		return nil
	}
	return meetings
}

// ForDate returns meetings whose start falls on date's calendar day in date's location.
func (s *Store) ForDate(date time.Time) ([]Meeting, error) {
	meetings := s.snapshot()
	y, m, d := date.Date()
	var out []Meeting
	for _, mt := range meetings {
		sy, sm, sd := mt.StartTime.In(date.Location()).Date()
		if sy == y && sm == m && sd == d {
			out = append(out, mt)
		}
	}
	return out, nil
}

// Upcoming returns meetings starting within [now, now+window].
func (s *Store) Upcoming(now time.Time, window time.Duration) ([]Meeting, error) {
	meetings := s.snapshot()
	cutoff := now.Add(window)
	var out []Meeting
	for _, m := range meetings {
		if !m.StartTime.Before(now) && !m.StartTime.After(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Update applies patch to the meeting with id.
func (s *Store) Update(id string, patch Patch) (Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meetings, err := s.load()
	if err != nil {
		return Meeting{}, err
	}
	for i := range meetings {
		if meetings[i].ID != id {
			continue
		}
		m := meetings[i]
		patch.apply(&m)
		if err := validate(m); err != nil {
			return Meeting{}, err
		}
		meetings[i] = m
		if err := s.save(meetings); err != nil {
			return Meeting{}, err
		}
		s.logger.Info("Updated meeting.", "id", id)
		return meetings[i], nil
	}
	return Meeting{}, fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
}

func validate(m Meeting) error {
	if m.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidMeeting)
	}
	if m.EndTime.Before(m.StartTime) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidMeeting,
			m.EndTime.Format(time.RFC3339), m.StartTime.Format(time.RFC3339))
	}
	if m.Category != "" {
		if _, err := models.ParseCategory(string(m.Category)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMeeting, err)
		}
	}
	return nil
}

func (p Patch) apply(m *Meeting) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.StartTime != nil {
		m.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		m.EndTime = *p.EndTime
	}
	if p.Attendees != nil {
		m.Attendees = p.Attendees
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Location != nil {
		m.Location = *p.Location
	}
	if p.MeetingLink != nil {
		m.MeetingLink = *p.MeetingLink
	}
	if p.IsRecurring != nil {
		m.IsRecurring = *p.IsRecurring
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
}

// Remove deletes the meeting with id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meetings, err := s.load()
	if err != nil {
		return err
	}
	kept := make([]Meeting, 0, len(meetings))
	for _, m := range meetings {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(meetings) {
		s.logger.Warn("Meeting not found.", "id", id)
		return fmt.Errorf("%w: %s", ErrMeetingNotFound, id)
	}
	if err := s.save(kept); err != nil {
		return err
	}
	s.logger.Info("Removed meeting.", "id", id)
	return nil
}

// ClearPast removes meetings that ended before now and reports how many.
func (s *Store) ClearPast(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meetings, err := s.load()
	if err != nil {
		return 0, err
	}
	active := make([]Meeting, 0, len(meetings))
	for _, m := range meetings {
		if !m.EndTime.Before(now) {
			active = append(active, m)
		}
	}
	removed := len(meetings) - len(active)
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(active); err != nil {
		return 0, err
	}
	s.logger.Info("Cleared past meetings.", "count", removed)
	return removed, nil
}

// ToRawEvents converts meetings into pipeline input. Manual meetings are never all-day.
func ToRawEvents(meetings []Meeting) []models.RawEvent {
	events := make([]models.RawEvent, 0, len(meetings))
	for _, m := range meetings {
		events = append(events, models.RawEvent{
			ID:             "manual-" + m.ID,
			Title:          m.Title,
			Description:    m.Description,
			StartTime:      m.StartTime,
			EndTime:        m.EndTime,
			Location:       m.Location,
			MeetingLink:    m.MeetingLink,
			Attendees:      m.Attendees,
			IsRecurring:    m.IsRecurring,
			SourceCalendar: SourceName,
		})
	}
	return events
}

// load reads the file. Callers hold s.mu.
func (s *Store) load() ([]Meeting, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	var meetings []Meeting
	if err := json.Unmarshal(data, &meetings); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, s.path, err)
	}
	return meetings, nil
}

// save replaces the file atomically.
func (s *Store) save(meetings []Meeting) error {
	if meetings == nil {
		meetings = []Meeting{}
	}
	data, err := json.MarshalIndent(meetings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal meetings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".meetings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write meetings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write meetings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace meeting store: %w", err)
	}
	return nil
}
