package model

import (
	"strings"
	"time"
)

type Location struct {
	ID             string
	Name           string
	NormalizedName string
	Address        string
	Latitude       *float64
	Longitude      *float64
	FacilityType   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Venue names drift between the listing grid and the detail pages
// ("Delbrook Community Recreation Centre" vs "Delbrook Comm Rec Ctr"),
// so matching happens on a collapsed form.
var nameSynonyms = [][2]string{
	{"community centre", "comm centre"},
	{"community center", "comm centre"},
	{"recreation centre", "rec centre"},
	{"recreation center", "rec centre"},
	{"centre", "ctr"},
	{"center", "ctr"},
	{"saint ", "st "},
	{"mount ", "mt "},
}

func NormalizeVenueName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, r := range []string{".", ",", "-", "'", "(", ")"} {
		n = strings.ReplaceAll(n, r, " ")
	}
	n = strings.Join(strings.Fields(n), " ")
	for _, syn := range nameSynonyms {
		n = strings.ReplaceAll(n, syn[0], syn[1])
	}
	return n
}

// InferFacilityType guesses a coarse venue category from name keywords.
func InferFacilityType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "pool") || strings.Contains(lower, "aquatic"):
		return "pool"
	case strings.Contains(lower, "arena") || strings.Contains(lower, "rink"):
		return "arena"
	case strings.Contains(lower, "recreation") || strings.Contains(lower, "rec centre") || strings.Contains(lower, "rec center"):
		return "recreation centre"
	case strings.Contains(lower, "community"):
		return "community centre"
	// gym before park: "Parkgate Gymnasium" is a gym.
	case strings.Contains(lower, "gym"):
		return "gym"
	case strings.Contains(lower, "park"):
		return "park"
	case strings.Contains(lower, "field") || strings.Contains(lower, "pitch"):
		return "field"
	default:
		return "other"
	}
}
