// Package icloud reads events from an iCloud CalDAV calendar and publishes
// prioritized meetings into a prep calendar.
package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

const (
	iCloudCalDAVEndpoint = "https://caldav.icloud.com/"
	userAgent            = "meetprep/1.0"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

// Client is a CalDAV client for iCloud.
type Client struct {
	caldav   *caldav.Client
	logger   *slog.Logger
	endpoint string
}

// Option applies a configuration option to the Client.
type Option func(*clientOptions)

type clientOptions struct {
	endpoint  string
	transport http.RoundTripper
}

// WithEndpoint points the client at another CalDAV server.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) {
		if rt != nil {
			o.transport = rt
		}
	}
}

// NewClient creates a CalDAV client authenticating with an app-specific password.
func NewClient(logger *slog.Logger, username, password string, opts ...Option) (*Client, error) {
	o := clientOptions{endpoint: iCloudCalDAVEndpoint, transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	var httpClient webdav.HTTPClient = &http.Client{Transport: &customTransport{
		Username:  username,
		Password:  password,
		Transport: o.transport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, o.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	return &Client{caldav: caldavClient, logger: logger, endpoint: o.endpoint}, nil
}

// FindCalendar discovers the user's calendars and returns the path of the one named name.
func (c *Client) FindCalendar(ctx context.Context, name string) (string, error) {
	c.logger.Info("Finding iCloud calendar", "calendarName", name)

	principalPath, err := c.caldav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldav.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldav.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			c.logger.Info("Found iCloud calendar", "calendarName", name, "path", cal.Path)
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// objectPath joins a calendar collection path and an object UID.
func objectPath(calendarPath, uid string) string {
	return strings.TrimSuffix(calendarPath, "/") + "/" + uid + ".ics"
}
