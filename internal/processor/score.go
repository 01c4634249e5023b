package processor

import (
	"math"
	"strings"
	"unicode/utf8"

	"meetprep/internal/models"
)

// Signal weights. They sum to 1.0.
const (
	weightCategory     = 0.30
	weightAttendees    = 0.20
	weightDuration     = 0.15
	weightExternal     = 0.15
	weightNonRecurring = 0.10
	weightDescription  = 0.10

	attendeeCap        = 10.0
	durationCapMinutes = 60.0
	minDescriptionLen  = 20
)

// Priority bucket thresholds, inclusive on the lower bound.
const (
	HighThreshold   = 0.6
	MediumThreshold = 0.35
)

const defaultCategoryScore = 0.4

var categoryScores = map[models.Category]float64{
	models.CategoryInterview:  1.0,
	models.CategoryClient:     0.9,
	models.CategoryOneOnOne:   0.7,
	models.CategoryNetworking: 0.7,
	models.CategoryTeam:       0.5,
	models.CategoryAllHands:   0.3,
	models.CategoryStandup:    0.2,
	models.CategoryOther:      0.4,
}

// Score computes the priority score of a classified event and its bucket.
// The score is clamped to [0, 1] and rounded to 3 decimals; the bucket is
// derived from the rounded value.
func Score(event models.EnrichedEvent) (float64, models.Priority) {
	score := 0.0

	catScore, ok := categoryScores[event.Category]
	if !ok {
		catScore = defaultCategoryScore
	}
	score += weightCategory * catScore
	score += weightAttendees * math.Min(float64(event.AttendeeCount)/attendeeCap, 1.0)
	score += weightDuration * math.Min(float64(max(event.DurationMinutes, 0))/durationCapMinutes, 1.0)

	if HasExternalAttendees(event.Event.Organizer, event.Event.Attendees) {
		score += weightExternal
	}
	if !event.Event.IsRecurring {
		score += weightNonRecurring
	}
	if utf8.RuneCountInString(event.Event.Description) > minDescriptionLen {
		score += weightDescription
	}

	score = math.Max(0, math.Min(1, score))
	score = math.Round(score*1000) / 1000
	return score, Bucket(score)
}

// Bucket maps a score to its priority level.
func Bucket(score float64) models.Priority {
	switch {
	case score >= HighThreshold:
		return models.PriorityHigh
	case score >= MediumThreshold:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// HasExternalAttendees reports whether any attendee email domain differs from the
// organizer's. Attendees without "@" are ignored, and an organizer without "@"
// never yields external attendees. Domains are compared verbatim.
func HasExternalAttendees(organizer string, attendees []string) bool {
	orgDomain, ok := emailDomain(organizer)
	if !ok {
		return false
	}
	for _, a := range attendees {
		if d, ok := emailDomain(a); ok && d != orgDomain {
			return true
		}
	}
	return false
}

func emailDomain(addr string) (string, bool) {
	i := strings.LastIndex(addr, "@")
	if i < 0 {
		return "", false
	}
	return addr[i+1:], true
}
