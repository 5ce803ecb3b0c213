package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrMissingName     = errors.New("restaurant has no name")
	ErrInvalidLocation = errors.New("restaurant has invalid coordinates")
)

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the location is finite and within WGS84 ranges
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lon, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Point represents a geo point with an ID and location
type Point struct {
	ID       string    `json:"id"`
	Location *Location `json:"location"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Contains reports whether loc lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Restaurant is one entry of the dataset. Rating, Review and Address are
// optional and decode from JSON null.
type Restaurant struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Visited bool     `json:"visited"`
	Rating  *float64 `json:"rating"`
	Review  *string  `json:"review"`
	Address *string  `json:"address"`
}

// Location returns the restaurant coordinates
func (r *Restaurant) Location() Location {
	return Location{Lat: r.Lat, Lon: r.Lon}
}

// Validate checks the fields a restaurant cannot be displayed without
func (r *Restaurant) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if !r.Location().Valid() {
		return fmt.Errorf("%w: %q at (%v, %v)", ErrInvalidLocation, r.Name, r.Lat, r.Lon)
	}
	return nil
}

// IsRated reports whether the restaurant was visited and carries a truthy
// rating. Everything else belongs to the to-visit group.
func (r *Restaurant) IsRated() bool {
	return r.Visited && r.Rating != nil && *r.Rating != 0 && !math.IsNaN(*r.Rating)
}

// RatingValue returns the rating or 0 when absent
func (r *Restaurant) RatingValue() float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}

// Str returns the value of an optional string, or "" when absent
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Float returns a pointer to v, for building optional ratings
func Float(v float64) *float64 {
	return &v
}

// Text returns a pointer to s, for building optional text fields
func Text(s string) *string {
	return &s
}
