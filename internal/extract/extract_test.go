package extract

import (
	"testing"
	"time"

	"github.com/shanehull/kidsource/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(text, html string) model.RawEntry {
	return model.RawEntry{Text: text, HTML: html, Category: "Swimming", Subcategory: "Lessons"}
}

func TestParseSwimLesson(t *testing.T) {
	raw := entry(
		"Learn to Swim Level 2 #123456\nSat 10:00am - 10:45am\nJan 6 - Mar 10, 2025\n$85.00\n3 spots left\nSign Up",
		`<div class="bm-course-row"><a href="https://anc.example.com/register?courseId=123456">Sign Up</a></div>`,
	)

	c, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "123456", c.ExternalID)
	assert.Equal(t, "Learn to Swim Level 2", c.Name)
	assert.Equal(t, []string{"Saturday"}, c.DaysOfWeek)
	assert.Equal(t, 85.0, c.Cost)
	require.NotNil(t, c.SpotsAvailable)
	assert.Equal(t, 3, *c.SpotsAvailable)
	assert.Equal(t, model.StatusOpen, c.RegistrationStatus)
	assert.Equal(t, "Sat 10:00am - 10:45am", c.Schedule)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), c.DateStart)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), c.DateEnd)
	assert.Equal(t, "Swimming", c.Category)
	assert.Equal(t, "Lessons", c.Subcategory)
}

func TestParseIsDeterministic(t *testing.T) {
	raw := entry(
		"Gymnastics Intro #445566\nMon, Wed 4:00pm - 5:00pm\nSep 8 - Dec 15, 2025\n$120.00 tax included\n2 of 10 spots",
		"",
	)
	first, err := Parse(raw)
	require.NoError(t, err)
	second, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExternalIDOrder(t *testing.T) {
	t.Run("dedicated id element wins", func(t *testing.T) {
		raw := entry("Ballet #999999", `<div data-course-id="111111"><a href="/register?courseId=222222">Sign Up</a></div>`)
		c, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "111111", c.ExternalID)
	})
	t.Run("hash token beats link param", func(t *testing.T) {
		raw := entry("Ballet #999999", `<div><a href="/register?courseId=222222">Sign Up</a></div>`)
		c, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "999999", c.ExternalID)
	})
	t.Run("link param as last resort", func(t *testing.T) {
		raw := entry("Ballet Basics", `<div><a href="/register?courseId=222222">Sign Up</a></div>`)
		c, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "222222", c.ExternalID)
	})
}

func TestMissingExternalIDDiscarded(t *testing.T) {
	raw := entry("Drop-in Playtime\nSat 1:00pm - 3:00pm\nFree", `<div><a href="/facilities">More info</a></div>`)
	_, err := Parse(raw)
	require.ErrorIs(t, err, ErrNoExternalID)
}

func TestAgeRanges(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		ageMin *int
		ageMax *int
	}{
		{"simple range", "Hockey #100001 8-12 yrs", ptr(8), ptr(12)},
		{"open ended", "Teen Fitness #100002 13+ yrs", ptr(13), nil},
		{"months to years", "Parent & Tot #100003 6 mos - 3 yrs", ptr(0), ptr(3)},
		{"months to months", "Infant Swim #100004 18-36 mos", ptr(1), ptr(3)},
		{"none", "Open Gym #100005", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(entry(tt.text, ""))
			require.NoError(t, err)
			assert.Equal(t, tt.ageMin, c.AgeMin)
			assert.Equal(t, tt.ageMax, c.AgeMax)
		})
	}
}

func TestRegistrationStatus(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		html   string
		status model.RegistrationStatus
	}{
		{"waitlist", "Karate #200001\nWaitlist", "", model.StatusWaitlist},
		{"full line", "Karate #200002\nFull", "", model.StatusFull},
		{"class full", "Karate #200003\nClass Full", "", model.StatusFull},
		{"full in title is not a cue", "Full Day Camp #200004\nSign Up", "", model.StatusOpen},
		{"link implies open", "Karate #200005", `<a href="/register?courseId=200005">details</a>`, model.StatusOpen},
		{"nothing known", "Karate #200006", "", model.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(entry(tt.text, tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.status, c.RegistrationStatus)
		})
	}
}

func TestDaysOfWeek(t *testing.T) {
	c, err := Parse(entry("Multi Sport #300001\nMon, Wed & Fri 3:30pm - 4:30pm", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday", "Wednesday", "Friday"}, c.DaysOfWeek)

	c, err = Parse(entry("Sunday Funday #300002\nSundays 9:00am - 11:00am", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"Sunday"}, c.DaysOfWeek)
}

func TestDateRangeWrapsYear(t *testing.T) {
	ref := time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)
	c, err := ParseAt(entry("Winter Skate #400001\nNov 20 - Jan 8", ""), ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC), c.DateStart)
	assert.Equal(t, time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC), c.DateEnd)
}

func TestYearlessDatesFollowReference(t *testing.T) {
	// The same entry parsed with the same reference gives the same dates,
	// whatever the wall clock says.
	refs := []time.Time{
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC),
	}
	for _, ref := range refs {
		c, err := ParseAt(entry("Summer Camp #400002\nJul 7 - Aug 15", ""), ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC), c.DateStart)
		assert.Equal(t, time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC), c.DateEnd)
	}
}

func TestSpotsVariants(t *testing.T) {
	c, err := Parse(entry("Camp A #500001\n2 of 16 spots", ""))
	require.NoError(t, err)
	require.NotNil(t, c.SpotsAvailable)
	require.NotNil(t, c.TotalSpots)
	assert.Equal(t, 2, *c.SpotsAvailable)
	assert.Equal(t, 16, *c.TotalSpots)

	c, err = Parse(entry("Camp B #500002\n5 spots remaining", ""))
	require.NoError(t, err)
	require.NotNil(t, c.SpotsAvailable)
	assert.Equal(t, 5, *c.SpotsAvailable)
	assert.Nil(t, c.TotalSpots)
}

func TestRegistrationDate(t *testing.T) {
	c, err := Parse(entry("Ballet Intro #700001\nJan 5 - Mar 9, 2026\nRegistration begins: Dec 1, 2025", ""))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), c.RegistrationDate)

	c, err = Parse(entry("Ballet Intro #700001\nJan 5 - Mar 9, 2026", ""))
	require.NoError(t, err)
	assert.True(t, c.RegistrationDate.IsZero())
}

func TestParseTimeRange(t *testing.T) {
	start, end, ok := ParseTimeRange("Sat 10:00am - 10:45am")
	require.True(t, ok)
	assert.Equal(t, "10:00am", start)
	assert.Equal(t, "10:45am", end)

	start, end, ok = ParseTimeRange("3pm - 5 p.m.")
	require.True(t, ok)
	assert.Equal(t, "3:00pm", start)
	assert.Equal(t, "5:00pm", end)

	_, _, ok = ParseTimeRange("no times here")
	assert.False(t, ok)
}

func ptr(v int) *int { return &v }
