package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRated(t *testing.T) {
	testCases := []struct {
		name     string
		r        Restaurant
		expected bool
	}{
		{"visited with rating", Restaurant{Visited: true, Rating: Float(8)}, true},
		{"visited without rating", Restaurant{Visited: true}, false},
		{"visited with zero rating", Restaurant{Visited: true, Rating: Float(0)}, false},
		{"visited with NaN rating", Restaurant{Visited: true, Rating: Float(math.NaN())}, false},
		{"not visited with rating", Restaurant{Visited: false, Rating: Float(9)}, false},
		{"not visited", Restaurant{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.r.IsRated())
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, (&Restaurant{Name: "Noma", Lat: 55.68, Lon: 12.61}).Validate())
	assert.ErrorIs(t, (&Restaurant{Name: "  ", Lat: 1, Lon: 1}).Validate(), ErrMissingName)
	assert.ErrorIs(t, (&Restaurant{Name: "Far", Lat: 91, Lon: 1}).Validate(), ErrInvalidLocation)
	assert.ErrorIs(t, (&Restaurant{Name: "Nan", Lat: math.NaN(), Lon: 1}).Validate(), ErrInvalidLocation)
}

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{
		BottomLeft: Location{Lat: 0, Lon: 0},
		TopRight:   Location{Lat: 10, Lon: 10},
	}
	assert.True(t, box.Contains(Location{Lat: 5, Lon: 5}))
	assert.True(t, box.Contains(Location{Lat: 10, Lon: 0}))
	assert.False(t, box.Contains(Location{Lat: 11, Lon: 5}))
}
