package mapview

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kass/restaurant-map/pkg/models"
	"github.com/paulmach/orb"
)

// MarkerRef is an opaque handle issued by a Provider for one marker
type MarkerRef string

// MarkerStyle selects how a marker is drawn
type MarkerStyle int

const (
	StyleToVisit MarkerStyle = iota
	StyleVisited
	StyleRated
	StylePick
)

func (s MarkerStyle) String() string {
	switch s {
	case StyleToVisit:
		return "to-visit"
	case StyleVisited:
		return "visited"
	case StyleRated:
		return "rated"
	case StylePick:
		return "pick"
	default:
		return "unknown"
	}
}

// MarkerSpec describes a marker to place on the map
type MarkerSpec struct {
	ID       string
	Location models.Location
	Label    string
	Style    MarkerStyle
	Popup    string
}

// FitOptions control FitBounds
type FitOptions struct {
	Padding int
	MaxZoom int
}

// Provider is the mapping library: tiles, projection and marker drawing
type Provider interface {
	CreateMap(center models.Location, zoom int) error
	AddMarker(spec MarkerSpec) (MarkerRef, error)
	RemoveMarker(ref MarkerRef)
	FitBounds(bound orb.Bound, opts FitOptions)
	SetView(center models.Location, zoom int)
	OpenPopup(ref MarkerRef)
	OnClick(handler func(lat, lon float64))
	InvalidateSize()
}

// LocationInputs are the optional latitude/longitude fields filled by a
// map click
type LocationInputs interface {
	SetLocation(lat, lon string)
}

// Scheduler runs callbacks after the current layout has settled. No
// ordering is guaranteed between callbacks.
type Scheduler interface {
	AfterLayout(fn func())
}

// ImmediateScheduler runs callbacks synchronously, for surfaces without a
// layout pass
type ImmediateScheduler struct{}

func (ImmediateScheduler) AfterLayout(fn func()) { fn() }

// StyleFor picks the marker style from visited and rating state
func StyleFor(r *models.Restaurant) MarkerStyle {
	switch {
	case r.IsRated():
		return StyleRated
	case r.Visited:
		return StyleVisited
	default:
		return StyleToVisit
	}
}

// PopupText summarizes a restaurant for its marker popup
func PopupText(r *models.Restaurant) string {
	var b strings.Builder
	b.WriteString(r.Name)
	if addr := models.Str(r.Address); addr != "" {
		b.WriteString("\n")
		b.WriteString(addr)
	}
	if r.IsRated() {
		fmt.Fprintf(&b, "\nRating: %s/10", FormatRating(*r.Rating))
		if review := models.Str(r.Review); review != "" {
			b.WriteString("\n")
			b.WriteString(review)
		}
	} else if r.Visited {
		b.WriteString("\nVisited, not rated")
	} else {
		b.WriteString("\nTo visit")
	}
	return b.String()
}

// FormatRating prints a rating without trailing zeros
func FormatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
