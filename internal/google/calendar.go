package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meetprep/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	credentialsFile = "credentials.json"
	pageSize        = 250
	noTitle         = "(No Title)"
)

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service          *calendar.Service
	logger           *slog.Logger
	account          string
	calendarIDs      []string
	loc              *time.Location
	excludeCancelled bool
}

// ClientConfig selects calendars and how their events are read.
type ClientConfig struct {
	CalendarIDs      []string
	Location         *time.Location
	ExcludeCancelled bool
}

// NewClient creates a new Google Calendar client for one saved account token.
// The token is read from token-<accountName>.json in tokenDir.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, tokenDir, accountName string, cfg ClientConfig) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(TokenPath(tokenDir, accountName))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth google' command first", accountName, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return newClient(service, logger, accountName, cfg), nil
}

func newClient(service *calendar.Service, logger *slog.Logger, account string, cfg ClientConfig) *CalendarClient {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	ids := cfg.CalendarIDs
	if len(ids) == 0 {
		ids = []string{"primary"}
	}
	return &CalendarClient{
		service:          service,
		logger:           logger,
		account:          account,
		calendarIDs:      ids,
		loc:              loc,
		excludeCancelled: cfg.ExcludeCancelled,
	}
}

// Name returns "google-<account>".
func (c *CalendarClient) Name() string {
	return "google-" + c.account
}

// FetchEvents fetches events in [from, to] from every configured calendar.
// A calendar that fails is logged and skipped; the call fails only when all do.
func (c *CalendarClient) FetchEvents(ctx context.Context, from, to time.Time) ([]models.RawEvent, error) {
	var all []models.RawEvent
	var lastErr error
	failed := 0
	for _, calID := range c.calendarIDs {
		events, err := c.fetchCalendar(ctx, calID, from, to)
		if err != nil {
			c.logger.Error("Could not fetch events for a google calendar", "account", c.account, "calendarID", calID, "error", err)
			lastErr = err
			failed++
			continue
		}
		all = append(all, events...)
	}
	if failed == len(c.calendarIDs) && lastErr != nil {
		return nil, fmt.Errorf("all google calendars failed for account %s: %w", c.account, lastErr)
	}
	return all, nil
}

// fetchCalendar pages through one calendar's expanded events.
func (c *CalendarClient) fetchCalendar(ctx context.Context, calendarID string, from, to time.Time) ([]models.RawEvent, error) {
	c.logger.Debug("Fetching upcoming events", "calendarID", calendarID, "from", from, "to", to)

	var events []models.RawEvent
	pageToken := ""
	for {
		call := c.service.Events.List(calendarID).
			Context(ctx).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			OrderBy("startTime").
			MaxResults(pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve events: %w", err)
		}
		events = append(events, toRawEvents(c.logger, page.Items, calendarID, c.loc, c.excludeCancelled)...)

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	c.logger.Info("Successfully fetched events from Google Calendar", "count", len(events), "calendarID", calendarID)
	return events, nil
}

// toRawEvents converts Google Calendar events to the raw event model.
// Events whose times cannot be parsed are logged and skipped.
func toRawEvents(logger *slog.Logger, items []*calendar.Event, calendarID string, loc *time.Location, excludeCancelled bool) []models.RawEvent {
	var out []models.RawEvent
	for _, item := range items {
		if excludeCancelled && item.Status == "cancelled" {
			continue
		}
		if item.Start == nil || item.End == nil {
			continue
		}

		start, allDay, err := parseEventTime(item.Start, loc)
		if err != nil {
			logger.Warn("Skipping event with unparseable start", "id", item.Id, "error", err)
			continue
		}
		end, _, err := parseEventTime(item.End, loc)
		if err != nil {
			logger.Warn("Skipping event with unparseable end", "id", item.Id, "error", err)
			continue
		}

		var attendees []string
		for _, a := range item.Attendees {
			if a.Email != "" {
				attendees = append(attendees, a.Email)
			}
		}

		var organizer string
		if item.Organizer != nil {
			organizer = item.Organizer.Email
		}

		title := item.Summary
		if strings.TrimSpace(title) == "" {
			title = noTitle
		}

		out = append(out, models.RawEvent{
			ID:             item.Id,
			Title:          title,
			Description:    item.Description,
			StartTime:      start,
			EndTime:        end,
			Location:       item.Location,
			MeetingLink:    meetingLink(item),
			Organizer:      organizer,
			Attendees:      attendees,
			IsAllDay:       allDay,
			IsRecurring:    item.RecurringEventId != "",
			SourceCalendar: "google-" + calendarID,
			UID:            item.ICalUID,
		})
	}
	return out
}

// parseEventTime reads a timed or all-day boundary. Dates are midnight in loc.
func parseEventTime(t *calendar.EventDateTime, loc *time.Location) (time.Time, bool, error) {
	if t.DateTime != "" {
		v, err := time.Parse(time.RFC3339, t.DateTime)
		return v, false, err
	}
	if t.Date != "" {
		v, err := time.ParseInLocation(time.DateOnly, t.Date, loc)
		return v, true, err
	}
	return time.Time{}, false, fmt.Errorf("event time has neither date nor dateTime")
}

// meetingLink prefers the Meet link, then the first video entry point.
func meetingLink(item *calendar.Event) string {
	if item.HangoutLink != "" {
		return item.HangoutLink
	}
	if item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return ""
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenPath is where the token of accountName lives.
func TokenPath(tokenDir, accountName string) string {
	return filepath.Join(tokenDir, "token-"+accountName+".json")
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts lists the account names with a saved token in tokenDir.
func GetTokenAccounts(tokenDir string) ([]string, error) {
	files, err := os.ReadDir(tokenDir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
