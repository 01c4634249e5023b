package schedule

import (
	"context"
	"log/slog"
	"time"
)

// RunWithClock exposes the scheduler loop with a fake clock.
func RunWithClock(ctx context.Context, logger *slog.Logger, loc *time.Location, cfg Config, fn func(context.Context) error,
	now func() time.Time, after func(time.Duration) <-chan time.Time,
) error {
	return run(ctx, logger, loc, cfg, fn, clock{now: now, after: after})
}
