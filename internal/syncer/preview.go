package syncer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"meetprep/internal/models"
)

// WritePreview saves the digest as indented JSON.
func WritePreview(path string, digest *models.Digest) error {
	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal digest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write digest preview: %w", err)
	}
	return nil
}

// PrintDigest writes one line per event in digest order, times shown in loc.
func PrintDigest(w io.Writer, digest *models.Digest, loc *time.Location) {
	fmt.Fprintf(w, "Meeting prep for %s: %d meetings, %.1f hours, %d high priority\n",
		digest.Date.Format("Mon Jan 2"), digest.TotalMeetings, digest.TotalMeetingHours, digest.HighPriorityCount)
	if len(digest.Events) == 0 {
		fmt.Fprintln(w, "  No meetings need preparation.")
		return
	}
	for _, e := range digest.Events {
		fmt.Fprintf(w, "  %s %s  %s  [%s, %dm, %s]\n",
			e.Priority.Marker(),
			e.Event.StartTime.In(loc).Format("15:04"),
			e.Event.Title,
			e.Category,
			e.DurationMinutes,
			e.Event.SourceCalendar,
		)
	}
}
