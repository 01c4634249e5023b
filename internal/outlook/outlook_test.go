package outlook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const page1 = `{
  "value": [
    {
      "id": "evt-1",
      "subject": "Client Review",
      "body": {"contentType": "text", "content": "Quarterly numbers"},
      "start": {"dateTime": "2026-02-14T15:00:00.0000000", "timeZone": "UTC"},
      "end": {"dateTime": "2026-02-14T16:00:00.0000000", "timeZone": "UTC"},
      "location": {"displayName": "Board room"},
      "attendees": [
        {"emailAddress": {"name": "A", "address": "a@acme.com"}},
        {"emailAddress": {"name": "No mail", "address": ""}},
        {"emailAddress": {"name": "B", "address": "b@client.io"}}
      ],
      "organizer": {"emailAddress": {"address": "a@acme.com"}},
      "isOnlineMeeting": true,
      "onlineMeeting": {"joinUrl": "https://teams.microsoft.com/l/meetup-join/1"},
      "recurrence": null,
      "type": "occurrence",
      "isCancelled": false,
      "iCalUId": "uid-1"
    },
    {
      "id": "evt-2",
      "subject": "Cancelled sync",
      "start": {"dateTime": "2026-02-14T10:00:00.0000000", "timeZone": "UTC"},
      "end": {"dateTime": "2026-02-14T10:30:00.0000000", "timeZone": "UTC"},
      "isCancelled": true
    }
  ],
  "@odata.nextLink": "NEXT"
}`

const page2 = `{
  "value": [
    {
      "id": "evt-3",
      "subject": "",
      "start": {"dateTime": "2026-02-15T00:00:00.0000000", "timeZone": "UTC"},
      "end": {"dateTime": "2026-02-16T00:00:00.0000000", "timeZone": "UTC"},
      "recurrence": {"pattern": {"type": "weekly"}},
      "type": "seriesMaster"
    },
    {
      "id": "evt-4",
      "subject": "Broken",
      "start": {"dateTime": "not a time", "timeZone": "UTC"},
      "end": {"dateTime": "2026-02-14T10:30:00", "timeZone": "UTC"}
    }
  ]
}`

func TestFetchEvents(t *testing.T) {
	var calls int
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, `outlook.timezone="UTC"`, r.Header.Get("Prefer"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/me/calendarview":
			assert.Equal(t, "2026-02-14T00:00:00Z", r.URL.Query().Get("startDateTime"))
			assert.Equal(t, "100", r.URL.Query().Get("$top"))
			_, _ = w.Write([]byte(replaceNext(page1, srv.URL+"/page2")))
		case "/page2":
			_, _ = w.Write([]byte(page2))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newClient(srv.Client(), slog.New(slog.DiscardHandler), WithBaseURL(srv.URL+"/"))
	from := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	events, err := c.FetchEvents(context.Background(), from, from.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, events, 2)

	review := events[0]
	assert.Equal(t, "evt-1", review.ID)
	assert.Equal(t, "Client Review", review.Title)
	assert.Equal(t, "Quarterly numbers", review.Description)
	assert.True(t, review.StartTime.Equal(time.Date(2026, 2, 14, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, 60, review.DurationMinutes())
	assert.Equal(t, []string{"a@acme.com", "b@client.io"}, review.Attendees)
	assert.Equal(t, "https://teams.microsoft.com/l/meetup-join/1", review.MeetingLink)
	assert.Equal(t, SourceTeams, review.SourceCalendar)
	assert.True(t, review.IsRecurring)
	assert.False(t, review.IsAllDay)

	allDay := events[1]
	assert.Equal(t, noSubject, allDay.Title)
	assert.True(t, allDay.IsAllDay)
	assert.True(t, allDay.IsRecurring)
	assert.Equal(t, SourceOutlook, allDay.SourceCalendar)
}

func TestFetchEvents_KeepCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(replaceNext(page1, "")))
	}))
	defer srv.Close()

	c := newClient(srv.Client(), slog.New(slog.DiscardHandler), WithBaseURL(srv.URL), WithExcludeCancelled(false))
	events, err := c.FetchEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestFetchEvents_GraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"InvalidAuthenticationToken","message":"Access token has expired."}}`))
	}))
	defer srv.Close()

	c := newClient(srv.Client(), slog.New(slog.DiscardHandler), WithBaseURL(srv.URL))
	_, err := c.FetchEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Access token has expired.")
}

func TestParseGraphDateTime(t *testing.T) {
	tests := []struct {
		name string
		in   graphDateTime
		want time.Time
	}{
		{"seven fractional digits", graphDateTime{"2026-02-14T10:00:00.1234567", "UTC"}, time.Date(2026, 2, 14, 10, 0, 0, 123456700, time.UTC)},
		{"trailing Z", graphDateTime{"2026-02-14T10:00:00Z", ""}, time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)},
		{"no fraction", graphDateTime{"2026-02-14T10:00:00", "UTC"}, time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)},
		{"unknown zone falls back to UTC", graphDateTime{"2026-02-14T10:00:00", "Pacific Standard Time"}, time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGraphDateTime(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s", got)
		})
	}

	_, err := parseGraphDateTime(graphDateTime{DateTime: "yesterday"})
	assert.Error(t, err)
}

func TestSpansWholeDays(t *testing.T) {
	day := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	assert.True(t, spansWholeDays(day, day.Add(24*time.Hour)))
	assert.True(t, spansWholeDays(day, day.Add(72*time.Hour)))
	assert.False(t, spansWholeDays(day, day.Add(12*time.Hour)))
	assert.False(t, spansWholeDays(day.Add(time.Hour), day.Add(25*time.Hour)))
}

type stubTokenSource struct {
	tokens []*oauth2.Token
	err    error
}

func (s *stubTokenSource) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	tok := s.tokens[0]
	if len(s.tokens) > 1 {
		s.tokens = s.tokens[1:]
	}
	return tok, nil
}

func TestSavingTokenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outlook_token.json")
	initial := &oauth2.Token{AccessToken: "a1", RefreshToken: "r1"}
	require.NoError(t, SaveToken(path, initial))

	refreshed := &oauth2.Token{AccessToken: "a2", RefreshToken: "r2"}
	src := newSavingTokenSource(&stubTokenSource{tokens: []*oauth2.Token{initial, refreshed}}, path, initial)

	_, err := src.Token()
	require.NoError(t, err)
	saved, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "r1", saved.RefreshToken)

	_, err = src.Token()
	require.NoError(t, err)
	saved, err = LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "r2", saved.RefreshToken)

	failing := newSavingTokenSource(&stubTokenSource{err: errors.New("revoked")}, path, nil)
	_, err = failing.Token()
	assert.Error(t, err)
}

func TestOAuthConfig(t *testing.T) {
	cfg := OAuthConfig("client", "")
	assert.Contains(t, cfg.Endpoint.TokenURL, "/common/")
	assert.Contains(t, cfg.Scopes, "offline_access")

	err := Authenticate(context.Background(), OAuthConfig("", "common"), "unused", func(*oauth2.DeviceAuthResponse) {})
	assert.Error(t, err)
}

func replaceNext(body, next string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		panic(err)
	}
	if next == "" {
		delete(m, "@odata.nextLink")
	} else {
		m["@odata.nextLink"] = next
	}
	out, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return string(out)
}
