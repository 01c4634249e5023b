// Package outlook reads Outlook calendar and Teams meetings through the
// Microsoft Graph calendarView endpoint.
package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meetprep/internal/models"

	"golang.org/x/oauth2"
)

const (
	graphBase   = "https://graph.microsoft.com/v1.0"
	pageSize    = 100
	noSubject   = "(No Subject)"
	graphLayout = "2006-01-02T15:04:05"
	selectField = "id,subject,start,end,body,location,attendees,organizer,isOnlineMeeting,onlineMeeting,recurrence,type,isCancelled,isAllDay,iCalUId"
)

// Source labels.
const (
	SourceOutlook = "outlook"
	SourceTeams   = "outlook_teams"
)

// Client fetches events from Microsoft Graph.
type Client struct {
	http             *http.Client
	baseURL          string
	logger           *slog.Logger
	excludeCancelled bool
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL points the client at another Graph endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithExcludeCancelled drops events Graph marks as cancelled.
func WithExcludeCancelled(exclude bool) Option {
	return func(c *Client) {
		c.excludeCancelled = exclude
	}
}

// NewClient creates a client from the token saved at tokenPath. Refreshed
// tokens are written back to the same file.
func NewClient(ctx context.Context, logger *slog.Logger, cfg *oauth2.Config, tokenPath string, opts ...Option) (*Client, error) {
	token, err := LoadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("could not load outlook token: %w. Please run the 'auth outlook' command first", err)
	}
	src := newSavingTokenSource(cfg.TokenSource(ctx, token), tokenPath, token)
	httpClient := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, src))
	return newClient(httpClient, logger, opts...), nil
}

func newClient(httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:             httpClient,
		baseURL:          graphBase,
		logger:           logger,
		excludeCancelled: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns "outlook".
func (c *Client) Name() string { return SourceOutlook }

// FetchEvents pages through /me/calendarview for [from, to].
func (c *Client) FetchEvents(ctx context.Context, from, to time.Time) ([]models.RawEvent, error) {
	q := url.Values{}
	q.Set("startDateTime", from.UTC().Format(time.RFC3339))
	q.Set("endDateTime", to.UTC().Format(time.RFC3339))
	q.Set("$select", selectField)
	q.Set("$orderby", "start/dateTime")
	q.Set("$top", fmt.Sprint(pageSize))
	next := c.baseURL + "/me/calendarview?" + q.Encode()

	var events []models.RawEvent
	for next != "" {
		page, err := c.getPage(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Value {
			if c.excludeCancelled && raw.IsCancelled {
				continue
			}
			event, err := raw.toRawEvent()
			if err != nil {
				c.logger.Warn("Failed to parse Outlook event", "subject", raw.Subject, "error", err)
				continue
			}
			events = append(events, event)
		}
		next = page.NextLink
	}

	c.logger.Info("Fetched events from Outlook/Teams.", "count", len(events))
	return events, nil
}

func (c *Client) getPage(ctx context.Context, u string) (*graphPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outlook events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		return nil, fmt.Errorf("failed to fetch outlook events: %s: %s", resp.Status, ge.Error.Message)
	}

	var page graphPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode outlook events: %w", err)
	}
	return &page, nil
}

type graphPage struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEmail struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphEvent struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    struct {
		Content string `json:"content"`
	} `json:"body"`
	Start    graphDateTime `json:"start"`
	End      graphDateTime `json:"end"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Attendees       []graphEmail `json:"attendees"`
	Organizer       *graphEmail  `json:"organizer"`
	IsOnlineMeeting bool         `json:"isOnlineMeeting"`
	OnlineMeeting   *struct {
		JoinURL string `json:"joinUrl"`
	} `json:"onlineMeeting"`
	Recurrence  json.RawMessage `json:"recurrence"`
	Type        string          `json:"type"`
	IsCancelled bool            `json:"isCancelled"`
	IsAllDay    bool            `json:"isAllDay"`
	ICalUID     string          `json:"iCalUId"`
}

func (g graphEvent) toRawEvent() (models.RawEvent, error) {
	start, err := parseGraphDateTime(g.Start)
	if err != nil {
		return models.RawEvent{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseGraphDateTime(g.End)
	if err != nil {
		return models.RawEvent{}, fmt.Errorf("end: %w", err)
	}

	var attendees []string
	for _, a := range g.Attendees {
		if a.EmailAddress.Address != "" {
			attendees = append(attendees, a.EmailAddress.Address)
		}
	}

	var organizer string
	if g.Organizer != nil {
		organizer = g.Organizer.EmailAddress.Address
	}

	var link string
	if g.OnlineMeeting != nil {
		link = g.OnlineMeeting.JoinURL
	}

	source := SourceOutlook
	if g.IsOnlineMeeting {
		source = SourceTeams
	}

	title := g.Subject
	if strings.TrimSpace(title) == "" {
		title = noSubject
	}

	return models.RawEvent{
		ID:             g.ID,
		Title:          title,
		Description:    g.Body.Content,
		StartTime:      start,
		EndTime:        end,
		Location:       g.Location.DisplayName,
		MeetingLink:    link,
		Organizer:      organizer,
		Attendees:      attendees,
		IsAllDay:       g.IsAllDay || spansWholeDays(start, end),
		IsRecurring:    hasRecurrence(g.Recurrence) || g.Type == "occurrence" || g.Type == "exception",
		SourceCalendar: source,
		UID:            g.ICalUID,
	}, nil
}

// parseGraphDateTime parses a Graph dateTimeTimeZone. Graph sends up to seven
// fractional digits and no offset; the zone comes from timeZone, UTC when
// absent or unknown.
func parseGraphDateTime(v graphDateTime) (time.Time, error) {
	loc := time.UTC
	if v.TimeZone != "" && !strings.EqualFold(v.TimeZone, "UTC") {
		if l, err := time.LoadLocation(v.TimeZone); err == nil {
			loc = l
		}
	}
	s := strings.TrimSuffix(v.DateTime, "Z")
	t, err := time.ParseInLocation(graphLayout, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func spansWholeDays(start, end time.Time) bool {
	midnight := func(t time.Time) bool { return t.Hour() == 0 && t.Minute() == 0 }
	return midnight(start) && midnight(end) && end.Sub(start) >= 24*time.Hour
}

func hasRecurrence(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}
