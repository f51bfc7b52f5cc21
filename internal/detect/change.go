// Package detect classifies an extracted candidate against the stored record.
package detect

import (
	"fmt"
	"time"

	"github.com/shanehull/kidsource/internal/model"
)

type Classification int

const (
	Create Classification = iota
	Update
	Unchanged
)

func (c Classification) String() string {
	switch c {
	case Create:
		return "CREATE"
	case Update:
		return "UPDATE"
	default:
		return "UNCHANGED"
	}
}

// Classify compares only the significant-field set; presence bookkeeping
// (lastSeenAt) is out of scope here. A nil existing record is a CREATE.
func Classify(existing *model.Activity, candidate model.Activity) Classification {
	if existing == nil {
		return Create
	}
	if len(Diff(existing, candidate)) > 0 {
		return Update
	}
	return Unchanged
}

// Diff names the significant fields that differ, for run logs. The list of
// fields is policy, not contract: it is everything a subscriber would want
// to hear about, and nothing that churns between identical scrapes.
func Diff(existing *model.Activity, candidate model.Activity) []string {
	var changed []string
	add := func(field string, differs bool) {
		if differs {
			changed = append(changed, field)
		}
	}

	add("name", existing.Name != candidate.Name)
	add("description", existing.Description != candidate.Description)
	add("schedule", existing.Schedule != candidate.Schedule)
	add("dateStart", !sameDay(existing.DateStart, candidate.DateStart))
	add("dateEnd", !sameDay(existing.DateEnd, candidate.DateEnd))
	add("ageMin", !sameInt(existing.AgeMin, candidate.AgeMin))
	add("ageMax", !sameInt(existing.AgeMax, candidate.AgeMax))
	add("cost", existing.Cost != candidate.Cost)
	add("spotsAvailable", !sameInt(existing.SpotsAvailable, candidate.SpotsAvailable))
	add("totalSpots", !sameInt(existing.TotalSpots, candidate.TotalSpots))
	add("locationId", existing.LocationID != candidate.LocationID)
	add("registrationUrl", existing.RegistrationURL != candidate.RegistrationURL)
	add("registrationStatus", existing.RegistrationStatus != candidate.RegistrationStatus)
	add("instructor", existing.Instructor != candidate.Instructor)
	add("fullDescription", existing.FullDescription != candidate.FullDescription)
	add("whatToBring", existing.WhatToBring != candidate.WhatToBring)
	return changed
}

// sameDay compares at day granularity. Stored timestamps round-trip through
// the database in UTC while fresh extractions carry the provider's zone, so
// anything finer produces false UPDATEs.
func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() == b.IsZero()
	}
	return civilDate(a) == civilDate(b)
}

func civilDate(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
