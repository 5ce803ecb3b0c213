package mapview_test

import (
	"errors"
	"testing"

	"github.com/kass/restaurant-map/pkg/mapview"
	"github.com/kass/restaurant-map/pkg/mapview/mapviewtest"
	"github.com/kass/restaurant-map/pkg/models"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMapView(t *testing.T, inputs mapview.LocationInputs) (*mapview.MapView, *mapviewtest.Provider, *mapviewtest.Scheduler) {
	t.Helper()

	provider := mapviewtest.New()
	scheduler := &mapviewtest.Scheduler{}
	opts := mapview.DefaultOptions()
	opts.Scheduler = scheduler
	opts.Inputs = inputs

	mv := mapview.New(provider, opts)
	require.NoError(t, mv.Initialize())
	return mv, provider, scheduler
}

func restaurant(id, name string, lat, lon float64) *models.Restaurant {
	return &models.Restaurant{ID: id, Name: name, Lat: lat, Lon: lon}
}

func TestInitialize(t *testing.T) {
	provider := mapviewtest.New()
	mv := mapview.New(provider, mapview.DefaultOptions())

	require.NoError(t, mv.Initialize())
	assert.True(t, provider.Created)
	assert.Equal(t, mapview.DefaultOptions().Center, provider.Center)
	assert.Equal(t, mapview.DefaultOptions().Zoom, provider.Zoom)
	assert.True(t, mv.Initialized())
	assert.Equal(t, mapview.CenterPending, mv.State())
}

func TestInitializeFailure(t *testing.T) {
	provider := mapviewtest.New()
	provider.CreateErr = errors.New("no container")
	mv := mapview.New(provider, mapview.DefaultOptions())

	err := mv.Initialize()
	assert.ErrorIs(t, err, mapview.ErrMapInit)
	assert.False(t, mv.Initialized())

	_, err = mv.AddMarker(restaurant("a", "A", 1, 1))
	assert.ErrorIs(t, err, mapview.ErrNotInitialized)

	assert.ErrorIs(t, mapview.New(nil, mapview.DefaultOptions()).Initialize(), mapview.ErrMapInit)
}

func TestAddAndClearMarkers(t *testing.T) {
	mv, provider, _ := newMapView(t, nil)

	ref, err := mv.AddMarker(restaurant("a", "A", 1, 1))
	require.NoError(t, err)
	_, err = mv.AddMarker(restaurant("b", "B", 2, 2))
	require.NoError(t, err)

	assert.Equal(t, 2, mv.MarkerCount())
	assert.Len(t, provider.Markers, 2)
	got, ok := mv.Marker("a")
	assert.True(t, ok)
	assert.Equal(t, ref, got)

	mv.ClearMarkers()
	assert.Equal(t, 0, mv.MarkerCount())
	assert.Empty(t, provider.Markers)
	_, ok = mv.Marker("a")
	assert.False(t, ok)
}

func TestAddMarkerReplacesSameID(t *testing.T) {
	mv, provider, _ := newMapView(t, nil)

	_, err := mv.AddMarker(restaurant("a", "A", 1, 1))
	require.NoError(t, err)
	_, err = mv.AddMarker(restaurant("a", "A", 1, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, mv.MarkerCount())
	assert.Len(t, provider.Markers, 1)
}

func TestAddMarkerProviderError(t *testing.T) {
	mv, provider, _ := newMapView(t, nil)
	provider.AddErr = errors.New("boom")

	_, err := mv.AddMarker(restaurant("a", "A", 1, 1))
	assert.Error(t, err)
	assert.Equal(t, 0, mv.MarkerCount())
}

func TestAddMarkerReplaceFailureDropsEntry(t *testing.T) {
	mv, provider, _ := newMapView(t, nil)

	_, err := mv.AddMarker(restaurant("a", "A", 1, 1))
	require.NoError(t, err)

	provider.AddErr = errors.New("boom")
	_, err = mv.AddMarker(restaurant("a", "A", 1, 1))
	assert.Error(t, err)

	_, ok := mv.Marker("a")
	assert.False(t, ok)
	assert.Equal(t, 0, mv.MarkerCount())
	assert.Empty(t, provider.Markers)
	_, ok = mv.MarkerNear(1, 1, 10)
	assert.False(t, ok)
	assert.ErrorIs(t, mv.Focus("a"), mapview.ErrUnknownMarker)
}

func TestCenterOnce(t *testing.T) {
	mv, provider, scheduler := newMapView(t, nil)
	bound := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{2, 2}}

	// No markers: nothing to center on, stays pending
	assert.False(t, mv.CenterIfNeeded(bound))
	assert.Equal(t, mapview.CenterPending, mv.State())

	_, err := mv.AddMarker(restaurant("a", "A", 1, 1))
	require.NoError(t, err)

	assert.True(t, mv.CenterIfNeeded(bound))
	assert.Equal(t, mapview.CenterDone, mv.State())

	// The fit waits for the layout pass
	assert.Empty(t, provider.Fits)
	scheduler.Flush()
	require.Len(t, provider.Fits, 1)
	assert.Equal(t, bound, provider.Fits[0].Bound)
	assert.Equal(t, mapview.DefaultOptions().MaxFitZoom, provider.Fits[0].Opts.MaxZoom)

	// Further automatic requests without a clear are ignored
	_, err = mv.AddMarker(restaurant("b", "B", 5, 5))
	require.NoError(t, err)
	assert.False(t, mv.CenterIfNeeded(bound))
	scheduler.Flush()
	assert.Len(t, provider.Fits, 1)

	// A clear re-arms centering
	mv.ClearMarkers()
	assert.Equal(t, mapview.CenterPending, mv.State())
	_, err = mv.AddMarker(restaurant("c", "C", 3, 3))
	require.NoError(t, err)
	assert.True(t, mv.CenterIfNeeded(bound))
	scheduler.Flush()
	assert.Len(t, provider.Fits, 2)
}

func TestClearDropsPendingFit(t *testing.T) {
	mv, provider, scheduler := newMapView(t, nil)
	_, err := mv.AddMarker(restaurant("a", "A", 1, 1))
	require.NoError(t, err)

	require.True(t, mv.CenterIfNeeded(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 1}}))
	mv.ClearMarkers()
	scheduler.Flush()
	assert.Empty(t, provider.Fits)
	assert.Equal(t, mapview.CenterPending, mv.State())

	// A fit scheduled after the clear still runs
	_, err = mv.AddMarker(restaurant("b", "B", 2, 2))
	require.NoError(t, err)
	bound := orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{2, 2}}
	require.True(t, mv.CenterIfNeeded(bound))
	scheduler.Flush()
	require.Len(t, provider.Fits, 1)
	assert.Equal(t, bound, provider.Fits[0].Bound)
}

func TestFitBoundsBypassesState(t *testing.T) {
	mv, provider, scheduler := newMapView(t, nil)
	_, err := mv.AddMarker(restaurant("a", "A", 1, 1))
	require.NoError(t, err)
	bound := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 1}}

	mv.CenterIfNeeded(bound)
	scheduler.Flush()

	mv.FitBounds(bound)
	mv.FitBounds(bound)
	assert.Len(t, provider.Fits, 3)
	assert.Equal(t, mapview.CenterDone, mv.State())
}

func TestHandleResizeDefersInvalidate(t *testing.T) {
	mv, provider, scheduler := newMapView(t, nil)

	mv.HandleResize()
	assert.Equal(t, 0, provider.Invalidates)
	assert.Equal(t, 1, scheduler.Pending())

	scheduler.Flush()
	assert.Equal(t, 1, provider.Invalidates)
}

func TestFocus(t *testing.T) {
	mv, provider, _ := newMapView(t, nil)
	ref, err := mv.AddMarker(restaurant("a", "A", 10, 20))
	require.NoError(t, err)

	require.NoError(t, mv.Focus("a"))
	require.Len(t, provider.Views, 1)
	assert.Equal(t, models.Location{Lat: 10, Lon: 20}, provider.Views[0].Center)
	assert.Equal(t, mapview.DefaultOptions().FocusZoom, provider.Views[0].Zoom)
	assert.Equal(t, []mapview.MarkerRef{ref}, provider.Popups)

	assert.ErrorIs(t, mv.Focus("missing"), mapview.ErrUnknownMarker)
}

func TestClickFillsInputsAndReplacesPick(t *testing.T) {
	inputs := &mapviewtest.Inputs{}
	mv, provider, _ := newMapView(t, inputs)
	_, err := mv.AddMarker(restaurant("a", "A", 1, 1))
	require.NoError(t, err)

	require.NoError(t, provider.Click(40.1234567, -73.9876543))
	assert.Equal(t, "40.123457", inputs.Lat)
	assert.Equal(t, "-73.987654", inputs.Lon)
	assert.Len(t, provider.MarkersWithStyle(mapview.StylePick), 1)

	require.NoError(t, provider.Click(41, -74))
	picks := provider.MarkersWithStyle(mapview.StylePick)
	require.Len(t, picks, 1)
	assert.Equal(t, models.Location{Lat: 41, Lon: -74}, picks[0].Location)
	assert.Equal(t, "41.000000", inputs.Lat)

	// The pick marker is not a restaurant marker
	assert.Equal(t, 1, mv.MarkerCount())
	mv.ClearMarkers()
	assert.Len(t, provider.MarkersWithStyle(mapview.StylePick), 1)
}

func TestClickWithoutInputsIsInert(t *testing.T) {
	_, provider, _ := newMapView(t, nil)

	require.NoError(t, provider.Click(1, 1))
	assert.Empty(t, provider.Markers)
}

func TestMarkerNearAndMarkersIn(t *testing.T) {
	mv, _, _ := newMapView(t, nil)
	for _, r := range []*models.Restaurant{
		restaurant("sf", "SF", 37.7749, -122.4194),
		restaurant("oak", "Oakland", 37.8044, -122.2712),
		restaurant("la", "LA", 34.0522, -118.2437),
	} {
		_, err := mv.AddMarker(r)
		require.NoError(t, err)
	}

	id, ok := mv.MarkerNear(37.78, -122.42, 2)
	assert.True(t, ok)
	assert.Equal(t, "sf", id)

	_, ok = mv.MarkerNear(36, -120, 2)
	assert.False(t, ok)

	ids, err := mv.MarkersIn(models.BoundingBox{
		BottomLeft: models.Location{Lat: 37, Lon: -123},
		TopRight:   models.Location{Lat: 38, Lon: -122},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"oak", "sf"}, ids)

	mv.ClearMarkers()
	_, ok = mv.MarkerNear(37.78, -122.42, 2)
	assert.False(t, ok)
}

func TestStyleAndPopup(t *testing.T) {
	rated := &models.Restaurant{
		Name: "Noma", Visited: true, Rating: models.Float(9.5),
		Review: models.Text("Superb"), Address: models.Text("Refshalevej 96"),
	}
	visited := &models.Restaurant{Name: "Geranium", Visited: true, Review: models.Text("hidden")}
	toVisit := &models.Restaurant{Name: "Alchemist"}

	assert.Equal(t, mapview.StyleRated, mapview.StyleFor(rated))
	assert.Equal(t, mapview.StyleVisited, mapview.StyleFor(visited))
	assert.Equal(t, mapview.StyleToVisit, mapview.StyleFor(toVisit))

	assert.Equal(t, "Noma\nRefshalevej 96\nRating: 9.5/10\nSuperb", mapview.PopupText(rated))
	assert.Equal(t, "Geranium\nVisited, not rated", mapview.PopupText(visited))
	assert.Equal(t, "Alchemist\nTo visit", mapview.PopupText(toVisit))
}
