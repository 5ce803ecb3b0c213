// Package mapview owns the map instance and the live restaurant markers.
//
// The map itself is an external collaborator reached through Provider.
// MapView keeps the restaurant-id to marker-handle table, a spatial index
// of live markers for hit-testing, the click-to-pick placeholder marker and
// the auto-center state machine: the view is fitted to the markers once
// after every clear and then left alone while the user navigates.
package mapview

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/kass/restaurant-map/pkg/models"
	"github.com/kass/restaurant-map/pkg/rtree"
	"github.com/paulmach/orb"
)

var (
	// ErrMapInit is returned when the provider cannot create the map.
	// The application is unusable without a map.
	ErrMapInit = errors.New("map initialization failed")

	// ErrUnknownMarker is returned when no live marker exists for an id.
	ErrUnknownMarker = errors.New("no marker for restaurant")

	ErrNotInitialized = errors.New("map not initialized")
)

// CenterState is the auto-center state of a MapView
type CenterState int

const (
	// CenterPending means the next render with markers fits the view
	CenterPending CenterState = iota
	// CenterDone means the view was fitted and is left to the user
	CenterDone
)

func (s CenterState) String() string {
	switch s {
	case CenterPending:
		return "pending"
	case CenterDone:
		return "done"
	default:
		return "unknown"
	}
}

// Options holds the fixed view parameters
type Options struct {
	Center     models.Location
	Zoom       int
	FocusZoom  int
	MaxFitZoom int
	Padding    int

	// Scheduler defers work until the layout settles. Nil runs immediately.
	Scheduler Scheduler
	// Inputs receive picked coordinates. Nil disables click-to-pick.
	Inputs LocationInputs
}

// DefaultOptions returns the view used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Center:     models.Location{Lat: 40.7128, Lon: -74.0060},
		Zoom:       12,
		FocusZoom:  16,
		MaxFitZoom: 15,
		Padding:    2,
	}
}

// MapView tracks the markers displayed on a Provider
type MapView struct {
	provider  Provider
	scheduler Scheduler
	inputs    LocationInputs
	opts      Options

	markers     map[string]MarkerRef
	restaurants map[string]*models.Restaurant
	index       *rtree.GeoIndex

	pick    MarkerRef
	hasPick bool

	state       CenterState
	initialized bool
	// generation counts clears; a deferred fit from an older one is dropped
	generation int
}

// New creates a MapView over provider. The map is not created until
// Initialize is called.
func New(provider Provider, opts Options) *MapView {
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = ImmediateScheduler{}
	}
	return &MapView{
		provider:    provider,
		scheduler:   scheduler,
		inputs:      opts.Inputs,
		opts:        opts,
		markers:     make(map[string]MarkerRef),
		restaurants: make(map[string]*models.Restaurant),
		index:       rtree.NewGeoIndex(),
		state:       CenterPending,
	}
}

// Initialize creates the map at the default center and zoom and wires the
// click handler. There is no retry.
func (mv *MapView) Initialize() error {
	if mv.provider == nil {
		err := fmt.Errorf("%w: no map provider", ErrMapInit)
		log.Printf("Map initialization failed: %v", err)
		return err
	}
	if err := mv.provider.CreateMap(mv.opts.Center, mv.opts.Zoom); err != nil {
		err = fmt.Errorf("%w: %v", ErrMapInit, err)
		log.Printf("Map initialization failed: %v", err)
		return err
	}

	mv.provider.OnClick(mv.HandleClick)
	mv.initialized = true
	return nil
}

// HandleClick fills the location inputs with the clicked coordinates and
// moves the pick marker there. It does nothing when no inputs are wired.
func (mv *MapView) HandleClick(lat, lon float64) {
	if mv.inputs == nil {
		return
	}

	mv.inputs.SetLocation(formatCoord(lat), formatCoord(lon))

	if mv.hasPick {
		mv.provider.RemoveMarker(mv.pick)
		mv.hasPick = false
	}
	ref, err := mv.provider.AddMarker(MarkerSpec{
		ID:       pickMarkerID,
		Location: models.Location{Lat: lat, Lon: lon},
		Label:    "Selected location",
		Style:    StylePick,
	})
	if err != nil {
		log.Printf("Failed to place pick marker: %v", err)
		return
	}
	mv.pick = ref
	mv.hasPick = true
}

// AddMarker displays r and registers its marker under r.ID
func (mv *MapView) AddMarker(r *models.Restaurant) (MarkerRef, error) {
	if !mv.initialized {
		return "", ErrNotInitialized
	}

	if old, ok := mv.markers[r.ID]; ok {
		mv.provider.RemoveMarker(old)
		delete(mv.markers, r.ID)
		delete(mv.restaurants, r.ID)
		mv.index.Remove(r.ID)
	}

	ref, err := mv.provider.AddMarker(MarkerSpec{
		ID:       r.ID,
		Location: r.Location(),
		Label:    r.Name,
		Style:    StyleFor(r),
		Popup:    PopupText(r),
	})
	if err != nil {
		return "", fmt.Errorf("failed to add marker for %q: %w", r.Name, err)
	}

	loc := r.Location()
	if err := mv.index.Insert(&models.Point{ID: r.ID, Location: &loc}); err != nil {
		mv.provider.RemoveMarker(ref)
		return "", fmt.Errorf("failed to index marker for %q: %w", r.Name, err)
	}

	mv.markers[r.ID] = ref
	mv.restaurants[r.ID] = r
	return ref, nil
}

// ClearMarkers removes every restaurant marker and makes auto-centering
// pending again. The pick marker is kept.
func (mv *MapView) ClearMarkers() {
	for _, ref := range mv.markers {
		mv.provider.RemoveMarker(ref)
	}
	mv.markers = make(map[string]MarkerRef)
	mv.restaurants = make(map[string]*models.Restaurant)
	mv.index.Clear()
	mv.state = CenterPending
	mv.generation++
}

// FitBounds fits the view to bound with the configured padding, never
// zooming closer than MaxFitZoom.
func (mv *MapView) FitBounds(bound orb.Bound) {
	if !mv.initialized {
		return
	}
	mv.provider.FitBounds(bound, FitOptions{
		Padding: mv.opts.Padding,
		MaxZoom: mv.opts.MaxFitZoom,
	})
}

// CenterIfNeeded fits the view to bound after the next layout when
// centering is pending and at least one marker is displayed. It reports
// whether a fit was scheduled. The fit is dropped if the markers are
// cleared before it runs.
func (mv *MapView) CenterIfNeeded(bound orb.Bound) bool {
	if mv.state != CenterPending || len(mv.markers) == 0 {
		return false
	}
	mv.state = CenterDone
	generation := mv.generation
	mv.scheduler.AfterLayout(func() {
		if generation != mv.generation {
			return
		}
		mv.FitBounds(bound)
	})
	return true
}

// HandleResize asks the map to re-measure its container once the layout
// has settled.
func (mv *MapView) HandleResize() {
	if !mv.initialized {
		return
	}
	mv.scheduler.AfterLayout(mv.provider.InvalidateSize)
}

// Focus centers the map on the restaurant at close zoom and opens its popup
func (mv *MapView) Focus(id string) error {
	ref, ok := mv.markers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMarker, id)
	}
	mv.provider.SetView(mv.restaurants[id].Location(), mv.opts.FocusZoom)
	mv.provider.OpenPopup(ref)
	return nil
}

// MarkerNear returns the id of the live marker closest to (lat, lon) if
// it lies within radiusKm.
func (mv *MapView) MarkerNear(lat, lon, radiusKm float64) (string, bool) {
	center := models.Location{Lat: lat, Lon: lon}
	nearest := mv.index.NearestNeighbors(center, 1)
	if len(nearest) == 0 {
		return "", false
	}
	p := nearest[0]
	if rtree.Distance(lat, lon, p.Location.Lat, p.Location.Lon) > radiusKm {
		return "", false
	}
	return p.ID, true
}

// MarkersIn returns the ids of live markers inside box, ordered by id
func (mv *MapView) MarkersIn(box models.BoundingBox) ([]string, error) {
	points, err := mv.index.QueryBox(box)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.ID
	}
	return ids, nil
}

// Marker returns the handle for a restaurant id
func (mv *MapView) Marker(id string) (MarkerRef, bool) {
	ref, ok := mv.markers[id]
	return ref, ok
}

// MarkerCount returns the number of live restaurant markers
func (mv *MapView) MarkerCount() int {
	return len(mv.markers)
}

// State returns the auto-center state
func (mv *MapView) State() CenterState {
	return mv.state
}

// Initialized reports whether the map was created
func (mv *MapView) Initialized() bool {
	return mv.initialized
}

const pickMarkerID = "__pick__"

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
