package main

import (
	"fmt"
	"time"

	"meetprep/internal/models"
	"meetprep/internal/store"

	"github.com/urfave/cli/v2"
)

const inputLayout = "2006-01-02 15:04"

func meetingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "meetings",
		Usage: "Manage manually added meetings.",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a meeting.",
				Flags: append(meetingFlags(),
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "start", Required: true, Usage: "Start time as \"YYYY-MM-DD HH:MM\"."},
					&cli.IntFlag{Name: "duration", Value: 30, Usage: "Length in minutes, ignored when --end is set."},
				),
				Action: meetingsAdd,
			},
			{
				Name:  "list",
				Usage: "List stored meetings.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "Only meetings on this day, as YYYY-MM-DD."},
					&cli.IntFlag{Name: "upcoming", Usage: "Only meetings starting within N hours."},
				},
				Action: meetingsList,
			},
			{
				Name:      "update",
				Usage:     "Change fields of a meeting.",
				ArgsUsage: "<id>",
				Flags: append(meetingFlags(),
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "start", Usage: "Start time as \"YYYY-MM-DD HH:MM\"."},
				),
				Action: meetingsUpdate,
			},
			{
				Name:      "remove",
				Usage:     "Remove a meeting.",
				ArgsUsage: "<id>",
				Action:    meetingsRemove,
			},
			{
				Name:   "clear-past",
				Usage:  "Remove meetings that have already ended.",
				Action: meetingsClearPast,
			},
		},
	}
}

// meetingFlags are shared by add and update.
func meetingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "end", Usage: "End time as \"YYYY-MM-DD HH:MM\"."},
		&cli.StringSliceFlag{Name: "attendee", Usage: "Attendee email; repeat for more."},
		&cli.StringFlag{Name: "description"},
		&cli.StringFlag{Name: "location"},
		&cli.StringFlag{Name: "link", Usage: "Video meeting link."},
		&cli.BoolFlag{Name: "recurring"},
		&cli.StringFlag{Name: "category", Usage: "Override the detected category."},
	}
}

func openStore(c *cli.Context) (*store.Store, *time.Location, error) {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}
	st, err := store.New(logger, cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	return st, loc, nil
}

func meetingsAdd(c *cli.Context) error {
	st, loc, err := openStore(c)
	if err != nil {
		return err
	}

	start, err := time.ParseInLocation(inputLayout, c.String("start"), loc)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end := start.Add(time.Duration(c.Int("duration")) * time.Minute)
	if c.IsSet("end") {
		if end, err = time.ParseInLocation(inputLayout, c.String("end"), loc); err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
	}

	m, err := st.Add(store.Meeting{
		Title:       c.String("title"),
		StartTime:   start,
		EndTime:     end,
		Attendees:   c.StringSlice("attendee"),
		Description: c.String("description"),
		Location:    c.String("location"),
		MeetingLink: c.String("link"),
		IsRecurring: c.Bool("recurring"),
		Category:    models.Category(c.String("category")),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Added meeting %s: %s\n", m.ID, m.Title)
	return nil
}

func meetingsList(c *cli.Context) error {
	st, loc, err := openStore(c)
	if err != nil {
		return err
	}

	var meetings []store.Meeting
	switch {
	case c.IsSet("date"):
		day, perr := time.ParseInLocation("2006-01-02", c.String("date"), loc)
		if perr != nil {
			return fmt.Errorf("invalid --date: %w", perr)
		}
		meetings, err = st.ForDate(day)
	case c.IsSet("upcoming"):
		meetings, err = st.Upcoming(time.Now(), time.Duration(c.Int("upcoming"))*time.Hour)
	default:
		meetings, err = st.All()
	}
	if err != nil {
		return err
	}

	if len(meetings) == 0 {
		fmt.Println("No meetings stored.")
		return nil
	}
	for _, m := range meetings {
		category := string(m.Category)
		if category == "" {
			category = "auto"
		}
		fmt.Printf("%s  %s-%s  %s  [%s, %d attendees]\n",
			m.ID,
			m.StartTime.In(loc).Format(inputLayout),
			m.EndTime.In(loc).Format("15:04"),
			m.Title,
			category,
			len(m.Attendees),
		)
	}
	return nil
}

func meetingsUpdate(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one meeting id")
	}
	st, loc, err := openStore(c)
	if err != nil {
		return err
	}

	var patch store.Patch
	if c.IsSet("title") {
		patch.Title = ptr(c.String("title"))
	}
	for _, name := range []string{"start", "end"} {
		if !c.IsSet(name) {
			continue
		}
		t, err := time.ParseInLocation(inputLayout, c.String(name), loc)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		if name == "start" {
			patch.StartTime = &t
		} else {
			patch.EndTime = &t
		}
	}
	if c.IsSet("attendee") {
		patch.Attendees = c.StringSlice("attendee")
	}
	if c.IsSet("description") {
		patch.Description = ptr(c.String("description"))
	}
	if c.IsSet("location") {
		patch.Location = ptr(c.String("location"))
	}
	if c.IsSet("link") {
		patch.MeetingLink = ptr(c.String("link"))
	}
	if c.IsSet("recurring") {
		patch.IsRecurring = ptr(c.Bool("recurring"))
	}
	if c.IsSet("category") {
		patch.Category = ptr(models.Category(c.String("category")))
	}

	m, err := st.Update(c.Args().First(), patch)
	if err != nil {
		return err
	}
	fmt.Printf("Updated meeting %s: %s\n", m.ID, m.Title)
	return nil
}

func meetingsRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one meeting id")
	}
	st, _, err := openStore(c)
	if err != nil {
		return err
	}
	if err := st.Remove(c.Args().First()); err != nil {
		return err
	}
	fmt.Printf("Removed meeting %s\n", c.Args().First())
	return nil
}

func meetingsClearPast(c *cli.Context) error {
	st, _, err := openStore(c)
	if err != nil {
		return err
	}
	n, err := st.ClearPast(time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d past meetings\n", n)
	return nil
}

func ptr[T any](v T) *T { return &v }
