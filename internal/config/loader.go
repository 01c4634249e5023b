package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MEETPREP_"
	// EnvConfigPath names the YAML file when no explicit path is given.
	EnvConfigPath = "MEETPREP_CONFIG"
	// DefaultConfigPath is read when present and nothing else is configured.
	DefaultConfigPath = "config.yaml"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file: path, else $MEETPREP_CONFIG, else ./config.yaml when it exists
//  3. env (prefix MEETPREP_, "__" separates nested keys)
func Load(path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	path, explicit := resolvePath(path)
	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
			}
		}
	}

	// MEETPREP_FILTERS__MIN_DURATION_MINUTES -> filters.min_duration_minutes
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// Lists replace the defaults instead of being merged element-wise.
	if k.Exists("filters.exclude_patterns") {
		cfg.Filters.ExcludePatterns = nil
	}
	if k.Exists("google.calendar_ids") {
		cfg.Google.CalendarIDs = nil
	}
	if k.Exists("ical.subscriptions") {
		cfg.ICal.Subscriptions = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolvePath(path string) (string, bool) {
	if path != "" {
		return path, true
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, true
	}
	return DefaultConfigPath, false
}

// Validate reports every invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	if c.Filters.MinDurationMinutes < 0 {
		errs = append(errs, fmt.Errorf("filters.min_duration_minutes must be >= 0, got %d", c.Filters.MinDurationMinutes))
	}
	if c.Filters.MinAttendees < 0 {
		errs = append(errs, fmt.Errorf("filters.min_attendees must be >= 0, got %d", c.Filters.MinAttendees))
	}
	if c.LookaheadHours <= 0 {
		errs = append(errs, fmt.Errorf("lookahead_hours must be > 0, got %d", c.LookaheadHours))
	}
	if c.Scheduler.RunHour < 0 || c.Scheduler.RunHour > 23 {
		errs = append(errs, fmt.Errorf("scheduler.run_hour must be in 0..23, got %d", c.Scheduler.RunHour))
	}
	if c.Scheduler.RunMinute < 0 || c.Scheduler.RunMinute > 59 {
		errs = append(errs, fmt.Errorf("scheduler.run_minute must be in 0..59, got %d", c.Scheduler.RunMinute))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
