package model

import "time"

type RegistrationStatus string

const (
	StatusOpen     RegistrationStatus = "Open"
	StatusFull     RegistrationStatus = "Full"
	StatusWaitlist RegistrationStatus = "Waitlist"
	StatusUnknown  RegistrationStatus = "Unknown"
)

// Activity is one offering (camp, class, program) keyed by the id the
// provider's site mints for it. (ProviderID, ExternalID) is the dedup key.
type Activity struct {
	ProviderID         string
	ExternalID         string
	Name               string
	Category           string
	Subcategory        string
	Schedule           string
	DaysOfWeek         []string
	DateStart          time.Time
	DateEnd            time.Time
	RegistrationDate   time.Time
	AgeMin             *int // nil means unbounded
	AgeMax             *int
	Cost               float64
	TaxIncluded        bool
	SpotsAvailable     *int
	TotalSpots         *int
	RegistrationStatus RegistrationStatus
	RegistrationURL    string
	LocationID         string // empty when unresolved
	Instructor         string
	Description        string
	FullDescription    string
	WhatToBring        string
	RawSnapshot        string // JSON of the last extraction, opaque to the store
	LastSeenAt         time.Time
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

type RunStats struct {
	Found       int
	Created     int
	Updated     int
	Unchanged   int
	Deactivated int
	Errors      int
}

type ScrapeRun struct {
	ID           string
	ProviderID   string
	Status       RunStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	Stats        RunStats
	ErrorMessage string
}
