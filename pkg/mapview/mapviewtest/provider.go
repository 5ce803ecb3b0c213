// Package mapviewtest provides an in-memory mapview.Provider that records
// every call, for tests of code that drives a map.
package mapviewtest

import (
	"errors"
	"fmt"

	"github.com/kass/restaurant-map/pkg/mapview"
	"github.com/kass/restaurant-map/pkg/models"
	"github.com/paulmach/orb"
)

// Fit is one recorded FitBounds call
type Fit struct {
	Bound orb.Bound
	Opts  mapview.FitOptions
}

// View is one recorded SetView call
type View struct {
	Center models.Location
	Zoom   int
}

// Provider records map calls. The zero value is not usable; call New.
type Provider struct {
	CreateErr error
	AddErr    error

	Created     bool
	Center      models.Location
	Zoom        int
	Markers     map[mapview.MarkerRef]mapview.MarkerSpec
	Fits        []Fit
	Views       []View
	Popups      []mapview.MarkerRef
	Invalidates int
	Removed     int

	clickHandler func(lat, lon float64)
	nextRef      int
}

// New returns an empty recording provider
func New() *Provider {
	return &Provider{Markers: make(map[mapview.MarkerRef]mapview.MarkerSpec)}
}

func (p *Provider) CreateMap(center models.Location, zoom int) error {
	if p.CreateErr != nil {
		return p.CreateErr
	}
	p.Created = true
	p.Center = center
	p.Zoom = zoom
	return nil
}

func (p *Provider) AddMarker(spec mapview.MarkerSpec) (mapview.MarkerRef, error) {
	if p.AddErr != nil {
		return "", p.AddErr
	}
	p.nextRef++
	ref := mapview.MarkerRef(fmt.Sprintf("m%d", p.nextRef))
	p.Markers[ref] = spec
	return ref, nil
}

func (p *Provider) RemoveMarker(ref mapview.MarkerRef) {
	if _, ok := p.Markers[ref]; ok {
		delete(p.Markers, ref)
		p.Removed++
	}
}

func (p *Provider) FitBounds(bound orb.Bound, opts mapview.FitOptions) {
	p.Fits = append(p.Fits, Fit{Bound: bound, Opts: opts})
}

func (p *Provider) SetView(center models.Location, zoom int) {
	p.Views = append(p.Views, View{Center: center, Zoom: zoom})
	p.Center = center
	p.Zoom = zoom
}

func (p *Provider) OpenPopup(ref mapview.MarkerRef) {
	p.Popups = append(p.Popups, ref)
}

func (p *Provider) OnClick(handler func(lat, lon float64)) {
	p.clickHandler = handler
}

func (p *Provider) InvalidateSize() {
	p.Invalidates++
}

// Click simulates a click on the map
func (p *Provider) Click(lat, lon float64) error {
	if p.clickHandler == nil {
		return errors.New("no click handler registered")
	}
	p.clickHandler(lat, lon)
	return nil
}

// MarkersWithStyle returns the specs of live markers drawn in style
func (p *Provider) MarkersWithStyle(style mapview.MarkerStyle) []mapview.MarkerSpec {
	var specs []mapview.MarkerSpec
	for _, spec := range p.Markers {
		if spec.Style == style {
			specs = append(specs, spec)
		}
	}
	return specs
}

// Scheduler queues callbacks until Flush, standing in for a layout pass
type Scheduler struct {
	pending []func()
}

func (s *Scheduler) AfterLayout(fn func()) {
	s.pending = append(s.pending, fn)
}

// Pending returns the number of queued callbacks
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Flush runs every queued callback
func (s *Scheduler) Flush() {
	pending := s.pending
	s.pending = nil
	for _, fn := range pending {
		fn()
	}
}

// Inputs records the last picked coordinates
type Inputs struct {
	Lat, Lon string
	Calls    int
}

func (in *Inputs) SetLocation(lat, lon string) {
	in.Lat = lat
	in.Lon = lon
	in.Calls++
}
