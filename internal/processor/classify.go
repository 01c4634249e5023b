package processor

import "meetprep/internal/models"

// Classify maps an enriched event to exactly one category.
// Rules are checked in order and the first match wins:
//  1. interview tag  -> interview
//  2. standup tag    -> standup
//  3. all-hands tag  -> all-hands
//  4. client tag     -> client
//  5. networking tag -> networking
//  6. one-on-one     -> 1:1
//  7. 3+ attendees   -> team
//  8. otherwise      -> other
func Classify(event models.EnrichedEvent) models.Category {
	switch {
	case event.HasTag(TagInterview):
		return models.CategoryInterview
	case event.HasTag(TagStandup):
		return models.CategoryStandup
	case event.HasTag(TagAllHands):
		return models.CategoryAllHands
	case event.HasTag(TagClient):
		return models.CategoryClient
	case event.HasTag(TagNetworking):
		return models.CategoryNetworking
	case event.IsOneOnOne:
		return models.CategoryOneOnOne
	case event.AttendeeCount >= 3:
		return models.CategoryTeam
	default:
		return models.CategoryOther
	}
}
