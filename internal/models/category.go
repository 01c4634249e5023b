package models

import (
	"fmt"
	"strings"
)

// Category classifies the type of meeting.
type Category string

const (
	CategoryOneOnOne    Category = "1:1"
	CategoryTeam        Category = "team"
	CategoryClient      Category = "client"
	CategoryInterview   Category = "interview"
	CategoryNetworking  Category = "networking"
	CategoryStandup     Category = "standup"
	CategoryAllHands    Category = "all-hands"
	CategoryOfficeHours Category = "office-hours"
	CategoryClass       Category = "class"
	CategoryPartTime    Category = "part-time"
	CategoryClub        Category = "club"
	CategoryCareerFair  Category = "career-fair"
	CategoryOther       Category = "other"
)

// Categories lists every known category. The last five are only ever set by hand.
var Categories = []Category{
	CategoryOneOnOne,
	CategoryTeam,
	CategoryClient,
	CategoryInterview,
	CategoryNetworking,
	CategoryStandup,
	CategoryAllHands,
	CategoryOfficeHours,
	CategoryClass,
	CategoryPartTime,
	CategoryClub,
	CategoryCareerFair,
	CategoryOther,
}

// ParseCategory resolves a user supplied category name.
func ParseCategory(s string) (Category, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == v {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

func (c Category) String() string { return string(c) }

// Priority is the discrete importance bucket of a meeting.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) String() string { return string(p) }

// Marker returns the short tag used in text previews.
func (p Priority) Marker() string {
	switch p {
	case PriorityHigh:
		return "!!!"
	case PriorityMedium:
		return " ! "
	default:
		return "   "
	}
}
