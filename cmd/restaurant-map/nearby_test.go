package main

import (
	"testing"

	"github.com/kass/restaurant-map/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cityHall = models.Location{Lat: 40.7128, Lon: -74.0060}

func nearbyRestaurants() []*models.Restaurant {
	return []*models.Restaurant{
		{ID: "c", Name: "Midtown", Lat: 40.7528, Lon: -74.0060},
		{ID: "d", Name: "Upstate", Lat: 41.7128, Lon: -74.0060},
		{ID: "b", Name: "Tribeca", Lat: 40.7228, Lon: -74.0060},
		{ID: "a", Name: "Next Door", Lat: 40.7130, Lon: -74.0060},
	}
}

func names(results []nearbyResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Restaurant.Name
	}
	return out
}

func TestFindNearbyRadius(t *testing.T) {
	results, err := findNearby(nearbyRestaurants(), cityHall, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Next Door", "Tribeca"}, names(results))
	assert.Less(t, results[0].DistanceKm, 0.1)
	assert.InDelta(t, 1.11, results[1].DistanceKm, 0.05)

	results, err = findNearby(nearbyRestaurants(), cityHall, 500, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Next Door", "Tribeca", "Midtown", "Upstate"}, names(results))
}

func TestFindNearbyK(t *testing.T) {
	results, err := findNearby(nearbyRestaurants(), cityHall, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Next Door", "Tribeca", "Midtown"}, names(results))
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].DistanceKm, results[i].DistanceKm)
	}

	results, err = findNearby(nearbyRestaurants(), cityHall, 0, 10)
	require.NoError(t, err)
	assert.Len(t, results, 4)

	results, err = findNearby(nil, cityHall, 0, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}
