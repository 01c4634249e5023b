// Package schedule runs a job once a day at a fixed local time.
package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Config is the daily run time.
type Config struct {
	Hour         int
	Minute       int
	WeekdaysOnly bool
}

// NextRun returns the first instant strictly after now, in now's location,
// whose wall clock reads hour:minute. Saturdays and Sundays are skipped when
// weekdaysOnly is set.
func NextRun(now time.Time, hour, minute int, weekdaysOnly bool) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	for !next.After(now) || (weekdaysOnly && isWeekend(next)) {
		d++
		next = time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	}
	return next
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Run calls fn at every scheduled time in loc until ctx is cancelled.
// A failing fn is logged and the loop continues. Run returns ctx.Err().
func Run(ctx context.Context, logger *slog.Logger, loc *time.Location, cfg Config, fn func(context.Context) error) error {
	return run(ctx, logger, loc, cfg, fn, clock{now: time.Now, after: time.After})
}

type clock struct {
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func run(ctx context.Context, logger *slog.Logger, loc *time.Location, cfg Config, fn func(context.Context) error, c clock) error {
	for ctx.Err() == nil {
		now := c.now().In(loc)
		next := NextRun(now, cfg.Hour, cfg.Minute, cfg.WeekdaysOnly)
		logger.Info("Next prep run scheduled.", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
		case <-c.after(next.Sub(now)):
			if err := fn(ctx); err != nil {
				logger.Error("Scheduled run failed", "error", err)
			}
		}
	}
	logger.Info("Scheduler stopped.")
	return ctx.Err()
}
