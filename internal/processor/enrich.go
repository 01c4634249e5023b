package processor

import (
	"strings"

	"meetprep/internal/models"
)

// Tag names inferred from titles.
const (
	TagStandup    = "standup"
	TagOneOnOne   = "one-on-one"
	TagReview     = "review"
	TagPlanning   = "planning"
	TagInterview  = "interview"
	TagClient     = "client"
	TagAllHands   = "all-hands"
	TagNetworking = "networking"
	TagWorkshop   = "workshop"
)

type tagRule struct {
	tag      string
	keywords []string
}

// tagRules is ordered; tags are emitted in this order.
var tagRules = []tagRule{
	{TagStandup, []string{"standup", "stand-up", "daily sync", "daily scrum"}},
	{TagOneOnOne, []string{"1:1", "1-1", "one on one", "1on1"}},
	{TagReview, []string{"review", "feedback", "retro", "retrospective"}},
	{TagPlanning, []string{"planning", "sprint", "roadmap", "strategy"}},
	{TagInterview, []string{"interview", "screening", "hiring"}},
	{TagClient, []string{"client", "customer", "external", "vendor"}},
	{TagAllHands, []string{"all-hands", "all hands", "town hall", "company meeting"}},
	{TagNetworking, []string{"networking", "coffee chat", "meet & greet", "intro"}},
	{TagWorkshop, []string{"workshop", "training", "onboarding"}},
}

// Enrich computes the derived fields of an event. Category and priority are
// left at their zero values until Classify and Score run.
func Enrich(event models.RawEvent) models.EnrichedEvent {
	count := len(event.Attendees)
	return models.EnrichedEvent{
		Event:           event,
		DurationMinutes: event.DurationMinutes(),
		AttendeeCount:   count,
		IsOneOnOne:      count == 2,
		Tags:            InferTags(event.Title),
	}
}

// InferTags matches the lowercased title against the keyword table.
func InferTags(title string) []string {
	lower := strings.ToLower(title)
	tags := []string{}
	for _, rule := range tagRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return tags
}
