package enrich

import (
	"testing"

	"github.com/shanehull/kidsource/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coursePage = `<html><body>
<div class="bm-course-details">
  <h1>Swim Lessons Level 3</h1>
  <div class="bm-course-description">Stroke development for confident swimmers. Front crawl and back crawl over 25m, plus an intro to dolphin kick.</div>
  <div class="bm-location-name">Ron Andrews Community Recreation Centre</div>
  <div class="bm-location-address">931 Lytton St, North Vancouver</div>
  <dl>
    <dt>Instructor</dt><dd>J. Tanaka</dd>
    <dt>What to bring</dt><dd>Swimsuit, towel, goggles</dd>
  </dl>
  <table class="sessions"><tbody>
    <tr><td>Jan 10, 2026</td><td>9:00am - 9:45am</td><td>Main Pool</td></tr>
    <tr><td>Jan 17, 2026</td><td>9:00am - 9:45am</td><td>Main Pool</td></tr>
  </tbody></table>
  <div class="bm-prerequisite">
    Requires: <a href="https://register.example.com/course?courseId=111222">Swim Lessons Level 2</a>
  </div>
</div>
</body></html>`

func TestParseDetailCoursePage(t *testing.T) {
	d, err := ParseDetail(coursePage)
	require.NoError(t, err)

	assert.Equal(t, "Ron Andrews Community Recreation Centre", d.LocationName)
	assert.Equal(t, "931 Lytton St, North Vancouver", d.Address)
	assert.Equal(t, "J. Tanaka", d.Instructor)
	assert.Equal(t, "Swimsuit, towel, goggles", d.WhatToBring)
	assert.Contains(t, d.FullDescription, "Stroke development")

	require.Len(t, d.Sessions, 2)
	assert.Equal(t, "Jan 10, 2026", d.Sessions[0].Date)
	assert.Equal(t, "Saturday", d.Sessions[0].DayOfWeek)
	assert.Equal(t, "9:00am", d.Sessions[0].StartTime)
	assert.Equal(t, "9:45am", d.Sessions[0].EndTime)
	assert.Equal(t, "Main Pool", d.Sessions[0].Location)

	require.Len(t, d.Prerequisites, 1)
	assert.Equal(t, "Swim Lessons Level 2", d.Prerequisites[0].Name)
	assert.Equal(t, "111222", d.Prerequisites[0].CourseID)
}

func TestParseDetailLabeledPairsFillGaps(t *testing.T) {
	html := `<html><body><dl>
	  <dt>Location</dt><dd>Delbrook Community Recreation Centre</dd>
	  <dt>Address</dt><dd>851 W Queens Rd</dd>
	</dl></body></html>`

	d, err := ParseDetail(html)
	require.NoError(t, err)
	assert.Equal(t, "Delbrook Community Recreation Centre", d.LocationName)
	assert.Equal(t, "851 W Queens Rd", d.Address)
}

func TestApplyKeepsListingFieldsWhenDetailIsEmpty(t *testing.T) {
	c := &model.Candidate{
		LocationName: "Listing Venue",
		Description:  "From the listing.",
	}
	d := &Detail{FullDescription: "Long form text. More detail follows."}
	d.Apply(c)

	assert.Equal(t, "Listing Venue", c.LocationName)
	assert.Equal(t, "From the listing.", c.Description)
	assert.Equal(t, "Long form text. More detail follows.", c.FullDescription)
}

func TestApplySetsDescriptionFromFirstSentence(t *testing.T) {
	c := &model.Candidate{}
	d := &Detail{FullDescription: "Stroke development for confident swimmers. Front crawl and back crawl."}
	d.Apply(c)
	assert.Equal(t, "Stroke development for confident swimmers.", c.Description)
}

func TestPartitionSpreadsWork(t *testing.T) {
	items := make([]*model.Candidate, 7)
	for i := range items {
		items[i] = &model.Candidate{}
	}

	parts := partition(items, 3)
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 3)
	assert.Len(t, parts[1], 3)
	assert.Len(t, parts[2], 1)

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	assert.Equal(t, len(items), total)

	// More browsers than work never yields empty partitions.
	parts = partition(items[:2], 5)
	require.Len(t, parts, 2)

	// A degenerate pool count still partitions.
	parts = partition(items, 0)
	require.Len(t, parts, 1)
	assert.Len(t, parts[0], 7)
}
