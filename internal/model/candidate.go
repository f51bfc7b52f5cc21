package model

import "time"

// RawEntry is one harvested leaf from the listing walk: the rendered text
// block plus the HTML fragment it came from, tagged with the group headings
// it was found under.
type RawEntry struct {
	Text        string
	HTML        string
	Category    string
	Subcategory string
}

// Candidate is an extracted-but-unpersisted activity. The extractor fills
// the listing-level fields; the detail enricher adds the rest.
type Candidate struct {
	ExternalID         string
	Name               string
	Category           string
	Subcategory        string
	Schedule           string
	DaysOfWeek         []string
	DateStart          time.Time
	DateEnd            time.Time
	RegistrationDate   time.Time
	AgeMin             *int
	AgeMax             *int
	Cost               float64
	TaxIncluded        bool
	SpotsAvailable     *int
	TotalSpots         *int
	RegistrationStatus RegistrationStatus
	RegistrationURL    string
	Description        string
	RawText            string

	// Detail-page fields.
	LocationName    string
	Address         string
	Latitude        *float64
	Longitude       *float64
	Instructor      string
	FullDescription string
	WhatToBring     string
	Sessions        []Session
	Prerequisites   []Prerequisite
}

type Session struct {
	Date      string
	DayOfWeek string
	StartTime string
	EndTime   string
	Location  string
}

type Prerequisite struct {
	Name     string
	CourseID string
	URL      string
}

// Activity builds the persistable record for this candidate. LocationID is
// supplied post-resolution; rawSnapshot is the serialized candidate.
func (c *Candidate) Activity(providerID, locationID, rawSnapshot string, now time.Time) Activity {
	return Activity{
		ProviderID:         providerID,
		ExternalID:         c.ExternalID,
		Name:               c.Name,
		Category:           c.Category,
		Subcategory:        c.Subcategory,
		Schedule:           c.Schedule,
		DaysOfWeek:         c.DaysOfWeek,
		DateStart:          c.DateStart,
		DateEnd:            c.DateEnd,
		RegistrationDate:   c.RegistrationDate,
		AgeMin:             c.AgeMin,
		AgeMax:             c.AgeMax,
		Cost:               c.Cost,
		TaxIncluded:        c.TaxIncluded,
		SpotsAvailable:     c.SpotsAvailable,
		TotalSpots:         c.TotalSpots,
		RegistrationStatus: c.RegistrationStatus,
		RegistrationURL:    c.RegistrationURL,
		LocationID:         locationID,
		Instructor:         c.Instructor,
		Description:        c.Description,
		FullDescription:    c.FullDescription,
		WhatToBring:        c.WhatToBring,
		RawSnapshot:        rawSnapshot,
		LastSeenAt:         now,
		IsActive:           true,
	}
}
