package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVenueName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Parkgate Community Centre", "parkgate comm ctr"},
		{"Parkgate Comm Centre", "parkgate comm ctr"},
		{"Delbrook Community Recreation Centre", "delbrook community rec ctr"},
		{"Delbrook Community Rec Centre", "delbrook community rec ctr"},
		{"Harry Jerome Rec. Center", "harry jerome rec ctr"},
		{"Saint Thomas Aquinas Gym", "st thomas aquinas gym"},
		{"  Mount  Seymour   Park ", "mt seymour park"},
		{"Lynn Valley Village (Main Hall)", "lynn valley village main hall"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeVenueName(tt.in), "input %q", tt.in)
	}
}

func TestNormalizedFormsCollapse(t *testing.T) {
	// Listing-grid and detail-page spellings of the same venue must land on
	// the same normalized form.
	pairs := [][2]string{
		{"Ron Andrews Community Recreation Centre", "Ron Andrews Community Rec Centre"},
		{"Karen Magnussen Community Recreation Centre", "Karen Magnussen Community Rec. Centre"},
		{"John Braithwaite Community Centre", "John Braithwaite Comm Centre"},
	}
	for _, p := range pairs {
		assert.Equal(t, NormalizeVenueName(p[0]), NormalizeVenueName(p[1]),
			"%q vs %q", p[0], p[1])
	}
}

func TestInferFacilityType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Karen Magnussen Pool", "pool"},
		{"Harry Jerome Aquatic Centre", "pool"},
		{"Canlan Ice Rink", "arena"},
		{"Delbrook Community Recreation Centre", "recreation centre"},
		{"John Braithwaite Community Centre", "community centre"},
		{"Myrtle Park", "park"},
		{"Inter River Field 3", "field"},
		{"Parkgate Gymnasium", "gym"},
		{"Lynn Valley Main Library", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferFacilityType(tt.name), "name %q", tt.name)
	}
}
