// Package config defines the meetprep configuration and its defaults.
//
// Preferences are layered by Load; secrets (OAuth client ids, app passwords)
// stay in the environment and are read by the command that needs them.
package config

import "time"

// FilterConfig controls which events the processor drops.
type FilterConfig struct {
	ExcludeAllDay bool `koanf:"exclude_all_day"`

	// ExcludeCancelled is enforced by the calendar sources, not the processor.
	ExcludeCancelled bool `koanf:"exclude_cancelled"`

	MinDurationMinutes int      `koanf:"min_duration_minutes"`
	MinAttendees       int      `koanf:"min_attendees"`
	ExcludePatterns    []string `koanf:"exclude_patterns"`

	// Workers > 1 enriches events concurrently.
	Workers int `koanf:"workers"`
}

// GoogleConfig configures the Google Calendar source.
type GoogleConfig struct {
	Enabled     bool     `koanf:"enabled"`
	CalendarIDs []string `koanf:"calendar_ids"`
	TokenDir    string   `koanf:"token_dir"`
}

// OutlookConfig configures the Microsoft Graph source.
type OutlookConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Tenant    string `koanf:"tenant"`
	TokenPath string `koanf:"token_path"`
}

// Subscription is one ICS feed.
type Subscription struct {
	Name string `koanf:"name"`
	URL  string `koanf:"url"`
}

// ICalConfig configures ICS subscription feeds.
type ICalConfig struct {
	Enabled       bool           `koanf:"enabled"`
	Subscriptions []Subscription `koanf:"subscriptions"`
}

// ICloudConfig configures the CalDAV source and the prep calendar publisher.
type ICloudConfig struct {
	Enabled        bool   `koanf:"enabled"`
	SourceCalendar string `koanf:"source_calendar"`
	PrepCalendar   string `koanf:"prep_calendar"`
	StatePath      string `koanf:"state_path"`
}

// StoreConfig locates the manual meeting store.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// SchedulerConfig sets the daily run time.
type SchedulerConfig struct {
	RunHour      int  `koanf:"run_hour"`
	RunMinute    int  `koanf:"run_minute"`
	WeekdaysOnly bool `koanf:"weekdays_only"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Timezone is the IANA zone used for all-day dates and scheduling.
	Timezone string `koanf:"timezone"`

	// LookaheadHours bounds how far ahead events are fetched.
	LookaheadHours int `koanf:"lookahead_hours"`

	// PreviewPath receives the digest JSON on dry runs.
	PreviewPath string `koanf:"preview_path"`

	Filters   FilterConfig    `koanf:"filters"`
	Google    GoogleConfig    `koanf:"google"`
	Outlook   OutlookConfig   `koanf:"outlook"`
	ICal      ICalConfig      `koanf:"ical"`
	ICloud    ICloudConfig    `koanf:"icloud"`
	Store     StoreConfig     `koanf:"store"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// DefaultExcludePatterns are the titles that never need preparation.
var DefaultExcludePatterns = []string{
	"OOO",
	"Out of Office",
	"Block",
	"Focus Time",
	"Lunch",
	"Break",
}

// DefaultFilterConfig returns the filter defaults.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		ExcludeAllDay:      true,
		ExcludeCancelled:   true,
		MinDurationMinutes: 10,
		MinAttendees:       0,
		ExcludePatterns:    append([]string(nil), DefaultExcludePatterns...),
	}
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Timezone:       "UTC",
		LookaheadHours: 24,
		PreviewPath:    "digest_preview.json",
		Filters:        DefaultFilterConfig(),
		Google: GoogleConfig{
			Enabled:     true,
			CalendarIDs: []string{"primary"},
			TokenDir:    ".",
		},
		Outlook: OutlookConfig{
			Tenant:    "common",
			TokenPath: "outlook_token.json",
		},
		ICal: ICalConfig{
			Enabled: true,
		},
		ICloud: ICloudConfig{
			PrepCalendar: "Meeting Prep",
			StatePath:    "sync-state.json",
		},
		Store: StoreConfig{
			Path: "meetings.json",
		},
		Scheduler: SchedulerConfig{
			RunHour:      8,
			WeekdaysOnly: true,
		},
	}
}

// Lookahead returns LookaheadHours as a duration.
func (c *Config) Lookahead() time.Duration {
	return time.Duration(c.LookaheadHours) * time.Hour
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
