package detect

import (
	"testing"
	"time"

	"github.com/shanehull/kidsource/internal/model"
	"github.com/stretchr/testify/assert"
)

func baseActivity() model.Activity {
	spots := 5
	total := 12
	ageMin := 6
	ageMax := 10
	return model.Activity{
		ProviderID:         "nvrc",
		ExternalID:         "123456",
		Name:               "Learn to Swim Level 2",
		Schedule:           "Sat 10:00am - 10:45am",
		DateStart:          time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		DateEnd:            time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		AgeMin:             &ageMin,
		AgeMax:             &ageMax,
		Cost:               85,
		SpotsAvailable:     &spots,
		TotalSpots:         &total,
		RegistrationStatus: model.StatusOpen,
		RegistrationURL:    "https://anc.example.com/register?courseId=123456",
		LocationID:         "loc-1",
		Instructor:         "J. Rivers",
	}
}

func TestClassifyNilExistingIsCreate(t *testing.T) {
	assert.Equal(t, Create, Classify(nil, baseActivity()))
}

func TestClassifyIdenticalIsUnchanged(t *testing.T) {
	existing := baseActivity()
	candidate := baseActivity()
	// Bookkeeping fields are not significant.
	candidate.LastSeenAt = time.Now()
	candidate.RawSnapshot = `{"different":"snapshot"}`
	assert.Equal(t, Unchanged, Classify(&existing, candidate))
}

func TestClassifySpotsChangeIsUpdate(t *testing.T) {
	existing := baseActivity()
	candidate := baseActivity()
	spots := 3
	candidate.SpotsAvailable = &spots

	assert.Equal(t, Update, Classify(&existing, candidate))
	assert.Equal(t, []string{"spotsAvailable"}, Diff(&existing, candidate))
}

func TestClassifyDayGranularityDates(t *testing.T) {
	pacific := time.FixedZone("PST", -8*3600)
	existing := baseActivity()
	candidate := baseActivity()
	// Same civil date, different clock and zone representation: not a change.
	candidate.DateStart = time.Date(2025, 1, 6, 16, 30, 0, 0, pacific)
	assert.Equal(t, Unchanged, Classify(&existing, candidate))

	candidate.DateStart = time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Update, Classify(&existing, candidate))
}

func TestClassifyNilAgainstValuePointer(t *testing.T) {
	existing := baseActivity()
	candidate := baseActivity()
	candidate.AgeMax = nil

	assert.Equal(t, Update, Classify(&existing, candidate))
	assert.Contains(t, Diff(&existing, candidate), "ageMax")
}

func TestDiffNamesAllChangedFields(t *testing.T) {
	existing := baseActivity()
	candidate := baseActivity()
	candidate.Name = "Learn to Swim Level 3"
	candidate.Cost = 95
	candidate.RegistrationStatus = model.StatusWaitlist

	diff := Diff(&existing, candidate)
	assert.ElementsMatch(t, []string{"name", "cost", "registrationStatus"}, diff)
}
