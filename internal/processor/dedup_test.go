package processor_test

import (
	"testing"
	"time"

	"meetprep/internal/models"
	"meetprep/internal/processor"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDeduplicate(t *testing.T) {
	Convey("Given events from several calendars", t, func() {
		Convey("When two events are identical", func() {
			out := processor.Deduplicate([]models.RawEvent{
				makeEvent("Team Meeting", withSource("work")),
				makeEvent("Team Meeting", withSource("personal")),
			})

			Convey("Then the first one is kept", func() {
				So(out, ShouldHaveLength, 1)
				So(out[0].SourceCalendar, ShouldEqual, "work")
			})
		})

		Convey("When titles differ only in case and whitespace and starts share a slot", func() {
			out := processor.Deduplicate([]models.RawEvent{
				makeEvent("Team Meeting ", withStart(10, 0)),
				makeEvent("team   meeting", withStart(10, 3), withDescription("Detailed agenda for the meeting")),
			})

			Convey("Then they merge and the detailed description wins", func() {
				So(out, ShouldHaveLength, 1)
				So(out[0].Description, ShouldEqual, "Detailed agenda for the meeting")
				So(out[0].StartTime.Minute(), ShouldEqual, 3)
			})
		})

		Convey("When the longer description arrives first", func() {
			out := processor.Deduplicate([]models.RawEvent{
				makeEvent("Sync", withDescription("long description here"), withSource("a")),
				makeEvent("Sync", withDescription("short"), withSource("b")),
				makeEvent("Sync", withSource("c")),
			})

			Convey("Then it is not replaced", func() {
				So(out, ShouldHaveLength, 1)
				So(out[0].SourceCalendar, ShouldEqual, "a")
			})
		})

		Convey("When descriptions tie in length", func() {
			out := processor.Deduplicate([]models.RawEvent{
				makeEvent("Sync", withDescription("abc"), withSource("first")),
				makeEvent("Sync", withDescription("xyz"), withSource("second")),
			})

			Convey("Then the earlier event wins", func() {
				So(out[0].SourceCalendar, ShouldEqual, "first")
			})
		})

		Convey("When a replacement happens", func() {
			out := processor.Deduplicate([]models.RawEvent{
				makeEvent("Alpha"),
				makeEvent("Beta"),
				makeEvent("Alpha", withDescription("now with details")),
				makeEvent("Gamma"),
			})

			Convey("Then the winner takes the first occurrence's position", func() {
				So(titles(out), ShouldResemble, []string{"Alpha", "Beta", "Gamma"})
				So(out[0].Description, ShouldEqual, "now with details")
			})
		})

		Convey("When attendees differ between duplicates", func() {
			out := processor.Deduplicate([]models.RawEvent{
				makeEvent("Review", withAttendees("a@x.com")),
				makeEvent("Review", withAttendees("b@x.com"), withDescription("more")),
			})

			Convey("Then attendee lists are not unioned", func() {
				So(out[0].Attendees, ShouldResemble, []string{"b@x.com"})
			})
		})

		Convey("When starts fall in different 5 minute slots", func() {
			out := processor.Deduplicate([]models.RawEvent{
				makeEvent("Standup", withStart(10, 4)),
				makeEvent("Standup", withStart(10, 6)),
			})

			Convey("Then both are kept", func() {
				So(out, ShouldHaveLength, 2)
			})
		})

		Convey("When the input is empty", func() {
			Convey("Then the output is empty", func() {
				So(processor.Deduplicate(nil), ShouldBeEmpty)
				So(processor.Deduplicate([]models.RawEvent{}), ShouldBeEmpty)
			})
		})

		Convey("When there is a single event", func() {
			e := makeEvent("Only", withAttendees("a@x.com"))

			Convey("Then it is returned unchanged", func() {
				So(processor.Deduplicate([]models.RawEvent{e}), ShouldResemble, []models.RawEvent{e})
			})
		})

		Convey("When dedup is applied twice", func() {
			in := []models.RawEvent{
				makeEvent("A", withStart(9, 0)),
				makeEvent("a", withStart(9, 2), withDescription("details")),
				makeEvent("B", withStart(9, 0)),
				makeEvent("B", withStart(9, 5)),
				makeEvent("C"),
			}
			once := processor.Deduplicate(in)

			Convey("Then the second pass changes nothing", func() {
				So(processor.Deduplicate(once), ShouldResemble, once)
			})
		})
	})
}

func TestDedupKey(t *testing.T) {
	Convey("Given the dedup key", t, func() {
		Convey("Then minutes are floored to a multiple of five", func() {
			a := processor.DedupKey(makeEvent("X", withStart(10, 7)))
			b := processor.DedupKey(makeEvent("X", withStart(10, 9)))
			So(a, ShouldEqual, b)
			So(a, ShouldEqual, "x|2026-02-14T10:05:00Z")
		})

		Convey("Then seconds are dropped", func() {
			e := makeEvent("X")
			e.StartTime = e.StartTime.Add(59 * time.Second)
			So(processor.DedupKey(e), ShouldEqual, "x|2026-02-14T10:00:00Z")
		})

		Convey("Then the start keeps its zone offset", func() {
			loc := time.FixedZone("EST", -5*3600)
			e := makeEvent("X")
			e.StartTime = time.Date(2026, 2, 14, 10, 12, 30, 0, loc)
			So(processor.DedupKey(e), ShouldEqual, "x|2026-02-14T10:10:00-05:00")
		})

		Convey("Then titles are normalized", func() {
			So(processor.NormalizeTitle("  Team \t  Meeting\n"), ShouldEqual, "team meeting")
		})
	})
}
