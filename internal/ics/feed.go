package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"meetprep/internal/config"
	"meetprep/internal/models"

	"github.com/emersion/go-ical"
)

const fetchTimeout = 15 * time.Second

// Source labels for feed events.
const (
	LabelICal    = "ical"
	LabelUniTime = "unitime"
)

// Feed is one ICS subscription.
type Feed struct {
	name   string
	url    string
	client *http.Client
	conv   Converter
	logger *slog.Logger
}

// FeedOption applies a configuration option to the Feed.
type FeedOption func(*Feed)

// WithHTTPClient replaces the default client with its 15 second timeout.
func WithHTTPClient(c *http.Client) FeedOption {
	return func(f *Feed) {
		if c != nil {
			f.client = c
		}
	}
}

// NewFeed creates a source for sub. Times without a zone are read in loc.
func NewFeed(logger *slog.Logger, sub config.Subscription, loc *time.Location, skipCancelled bool, opts ...FeedOption) *Feed {
	label := Label(sub)
	f := &Feed{
		name:   sub.Name,
		url:    sub.URL,
		client: &http.Client{Timeout: fetchTimeout},
		conv: Converter{
			Source:        label,
			Feed:          sub.URL,
			Location:      loc,
			SkipCancelled: skipCancelled,
		},
		logger: logger,
	}
	if f.name == "" {
		f.name = label
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Label is "unitime" when the subscription name or URL mentions UniTime, else "ical".
func Label(sub config.Subscription) string {
	if strings.Contains(strings.ToLower(sub.Name), LabelUniTime) || strings.Contains(strings.ToLower(sub.URL), LabelUniTime) {
		return LabelUniTime
	}
	return LabelICal
}

// Name returns the subscription name.
func (f *Feed) Name() string { return f.name }

// FetchEvents downloads the feed and returns its events overlapping [from, to].
func (f *Feed) FetchEvents(ctx context.Context, from, to time.Time) ([]models.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", f.name, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", f.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch feed %s: unexpected status %s", f.name, resp.Status)
	}

	events, err := f.decode(resp.Body, from, to)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Fetched events from ICS feed.", "feed", f.name, "count", len(events))
	return events, nil
}

// decode reads every VCALENDAR in r.
func (f *Feed) decode(r io.Reader, from, to time.Time) ([]models.RawEvent, error) {
	dec := ical.NewDecoder(r)
	var events []models.RawEvent
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse feed %s: %w", f.name, err)
		}
		events = append(events, f.conv.Calendar(f.logger, cal, from, to)...)
	}
	return events, nil
}
