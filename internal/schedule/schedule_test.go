package schedule_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"meetprep/internal/schedule"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNextRun(t *testing.T) {
	Convey("Given a daily 08:00 schedule", t, func() {
		// 2026-02-13 is a Friday.
		friday := func(h, m int) time.Time { return time.Date(2026, 2, 13, h, m, 0, 0, time.UTC) }

		Convey("When it is earlier that day", func() {
			Convey("Then the run is today", func() {
				So(schedule.NextRun(friday(7, 30), 8, 0, true), ShouldEqual, friday(8, 0))
			})
		})

		Convey("When it is exactly the run time", func() {
			Convey("Then the next run is strictly later", func() {
				So(schedule.NextRun(friday(8, 0), 8, 0, false), ShouldEqual, time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC))
			})
		})

		Convey("When Friday's run has passed and weekdays only is set", func() {
			Convey("Then the weekend is skipped", func() {
				So(schedule.NextRun(friday(9, 0), 8, 0, true), ShouldEqual, time.Date(2026, 2, 16, 8, 0, 0, 0, time.UTC))
				So(schedule.NextRun(time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC), 8, 0, true).Weekday(), ShouldEqual, time.Monday)
			})
		})

		Convey("When weekends are allowed", func() {
			Convey("Then Saturday is used", func() {
				So(schedule.NextRun(friday(9, 0), 8, 0, false).Weekday(), ShouldEqual, time.Saturday)
			})
		})

		Convey("When the month ends", func() {
			Convey("Then the date rolls over", func() {
				got := schedule.NextRun(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC), 6, 15, false)
				So(got, ShouldEqual, time.Date(2026, 4, 1, 6, 15, 0, 0, time.UTC))
			})
		})

		Convey("When now carries a zone", func() {
			loc := time.FixedZone("PST", -8*3600)
			got := schedule.NextRun(time.Date(2026, 2, 13, 7, 0, 0, 0, loc), 8, 0, true)

			Convey("Then the wall clock is in that zone", func() {
				So(got.Location(), ShouldEqual, loc)
				So(got.Hour(), ShouldEqual, 8)
				So(got.Day(), ShouldEqual, 13)
			})
		})
	})
}

func TestRun(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	cfg := schedule.Config{Hour: 8, WeekdaysOnly: true}
	start := time.Date(2026, 2, 13, 7, 0, 0, 0, time.UTC)

	Convey("Given a scheduler with a fake clock", t, func() {
		now := start
		var waits []time.Duration
		after := func(d time.Duration) <-chan time.Time {
			waits = append(waits, d)
			now = now.Add(d)
			ch := make(chan time.Time, 1)
			ch <- now
			return ch
		}

		Convey("When the job runs three times and then cancels", func() {
			ctx, cancel := context.WithCancel(context.Background())
			var runs []time.Time
			err := schedule.RunWithClock(ctx, logger, time.UTC, cfg, func(context.Context) error {
				runs = append(runs, now)
				if len(runs) == 2 {
					return errors.New("source down")
				}
				if len(runs) == 3 {
					cancel()
				}
				return nil
			}, func() time.Time { return now }, after)

			Convey("Then it fires at each weekday run time and survives failures", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(runs, ShouldHaveLength, 3)
				So(runs[0], ShouldEqual, time.Date(2026, 2, 13, 8, 0, 0, 0, time.UTC))
				So(runs[1], ShouldEqual, time.Date(2026, 2, 16, 8, 0, 0, 0, time.UTC))
				So(runs[2], ShouldEqual, time.Date(2026, 2, 17, 8, 0, 0, 0, time.UTC))
				So(waits[0], ShouldEqual, time.Hour)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			called := false
			block := func(time.Duration) <-chan time.Time { return nil }
			err := schedule.RunWithClock(ctx, logger, time.UTC, cfg, func(context.Context) error {
				called = true
				return nil
			}, func() time.Time { return now }, block)

			Convey("Then it returns without running", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(called, ShouldBeFalse)
			})
		})
	})
}
