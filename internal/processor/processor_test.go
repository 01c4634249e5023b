package processor_test

import (
	"fmt"
	"testing"

	"meetprep/internal/config"
	"meetprep/internal/models"
	"meetprep/internal/processor"

	. "github.com/smartystreets/goconvey/convey"
)

func TestProcess(t *testing.T) {
	Convey("Given a processor with default filters", t, func() {
		p := newProcessor(config.DefaultFilterConfig())

		Convey("When the only event is all-day", func() {
			out := p.Process([]models.RawEvent{makeEvent("Company Holiday", allDay())})

			Convey("Then nothing is returned", func() {
				So(out, ShouldBeEmpty)
			})
		})

		Convey("When a sync has exactly two attendees", func() {
			out := p.Process([]models.RawEvent{makeEvent("Sync with Alex", withAttendees("me@x.com", "alex@x.com"))})

			Convey("Then it is a one-on-one", func() {
				So(out, ShouldHaveLength, 1)
				So(out[0].IsOneOnOne, ShouldBeTrue)
				So(out[0].Category, ShouldEqual, models.CategoryOneOnOne)
			})
		})

		Convey("When a standup, an interview and a planning meeting arrive in that order", func() {
			standup := makeEvent("Daily Standup", withStart(9, 0), withDuration(15), recurring(),
				withAttendees("a@x.com", "b@x.com"))
			interview := makeEvent("Interview - ML Engineer", withStart(11, 0), withDuration(45),
				withDescription("Panel interview for the ML platform team"),
				withOrganizer("recruiter@acme.com"),
				withAttendees("recruiter@acme.com", "candidate@gmail.com"))
			planning := makeEvent("Team Sprint Planning", withStart(14, 0),
				withAttendees("a@x.com", "b@x.com", "c@x.com"))

			out, stats := p.ProcessWithStats([]models.RawEvent{standup, interview, planning})

			Convey("Then they come out by descending score", func() {
				So(titles(out), ShouldResemble, []string{"Interview - ML Engineer", "Team Sprint Planning", "Daily Standup"})
				So(out[0].Priority, ShouldEqual, models.PriorityHigh)
				So(out[1].Priority, ShouldEqual, models.PriorityMedium)
				So(out[1].Category, ShouldEqual, models.CategoryTeam)
				So(out[2].Priority, ShouldEqual, models.PriorityLow)
				So(out[2].Tags, ShouldContain, processor.TagStandup)
			})

			Convey("Then the stats count each stage", func() {
				So(stats, ShouldResemble, processor.Stats{Raw: 3, Filtered: 3, Deduped: 3, High: 1, Medium: 1, Low: 1})
			})
		})

		Convey("When duplicates and noise are mixed in", func() {
			out, stats := p.ProcessWithStats([]models.RawEvent{
				makeEvent("Team Meeting ", withStart(10, 0), withSource("work")),
				makeEvent("team meeting", withStart(10, 3), withDescription("Detailed agenda for the meeting"), withSource("personal")),
				makeEvent("Lunch"),
				makeEvent("Ping", withDuration(5)),
			})

			Convey("Then one merged record survives", func() {
				So(out, ShouldHaveLength, 1)
				So(out[0].Event.Description, ShouldEqual, "Detailed agenda for the meeting")
				So(stats.Raw, ShouldEqual, 4)
				So(stats.Filtered, ShouldEqual, 2)
				So(stats.Deduped, ShouldEqual, 1)
			})
		})

		Convey("When several events score the same", func() {
			in := []models.RawEvent{
				makeEvent("First", withStart(9, 0)),
				makeEvent("Second", withStart(10, 0)),
				makeEvent("Interview", withStart(11, 0)),
				makeEvent("Third", withStart(12, 0)),
			}
			out := p.Process(in)

			Convey("Then ties keep their input order", func() {
				So(titles(out), ShouldResemble, []string{"Interview", "First", "Second", "Third"})
				So(out[1].PriorityScore, ShouldEqual, out[3].PriorityScore)
			})
		})

		Convey("When the input is empty", func() {
			Convey("Then the output is empty", func() {
				So(p.Process(nil), ShouldBeEmpty)
			})
		})

		Convey("When any event is processed", func() {
			out := p.Process(sampleEvents(60))

			Convey("Then every score is bounded and matches its bucket", func() {
				for _, e := range out {
					So(e.PriorityScore, ShouldBeBetweenOrEqual, 0.0, 1.0)
					switch {
					case e.PriorityScore >= 0.6:
						So(e.Priority, ShouldEqual, models.PriorityHigh)
					case e.PriorityScore >= 0.35:
						So(e.Priority, ShouldEqual, models.PriorityMedium)
					default:
						So(e.Priority, ShouldEqual, models.PriorityLow)
					}
					So(e.Category, ShouldNotBeEmpty)
				}
			})

			Convey("Then scores never increase down the list", func() {
				for i := 1; i < len(out); i++ {
					So(out[i].PriorityScore, ShouldBeLessThanOrEqualTo, out[i-1].PriorityScore)
				}
			})
		})
	})

	Convey("Given a concurrent processor", t, func() {
		seq := newProcessor(config.DefaultFilterConfig())
		par := newProcessor(config.DefaultFilterConfig(), processor.WithWorkers(8))
		in := sampleEvents(200)

		Convey("Then its output equals the sequential output", func() {
			So(par.Process(in), ShouldResemble, seq.Process(in))
		})
	})

	Convey("Given workers configured through the filter config", t, func() {
		cfg := config.DefaultFilterConfig()
		cfg.Workers = 4
		p := newProcessor(cfg)
		in := sampleEvents(50)

		Convey("Then the output matches the sequential one", func() {
			So(p.Process(in), ShouldResemble, newProcessor(config.DefaultFilterConfig()).Process(in))
		})
	})
}

// sampleEvents builds a varied, deterministic batch.
func sampleEvents(n int) []models.RawEvent {
	titlesPool := []string{
		"Daily Standup", "1:1 with Sam", "Client Review", "Sprint Planning",
		"Interview - Backend", "Town Hall", "Coffee chat", "Design sync", "Dentist",
	}
	events := make([]models.RawEvent, 0, n)
	for i := 0; i < n; i++ {
		attendees := make([]string, i%6)
		for j := range attendees {
			attendees[j] = fmt.Sprintf("p%d@%s", j, []string{"acme.com", "other.io"}[j%2])
		}
		opts := []eventOpt{
			withStart(8+i%9, (i*7)%60),
			withDuration(10 + (i*13)%80),
			withAttendees(attendees...),
			withOrganizer("me@acme.com"),
		}
		if i%3 == 0 {
			opts = append(opts, recurring())
		}
		if i%4 == 0 {
			opts = append(opts, withDescription("Agenda: review last week's numbers and plan"))
		}
		events = append(events, makeEvent(fmt.Sprintf("%s #%d", titlesPool[i%len(titlesPool)], i), opts...))
	}
	return events
}
