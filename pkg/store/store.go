// Package store holds the restaurant dataset and the active filter and
// keeps the map markers and the sidebar list in step with them.
package store

import (
	"context"
	"fmt"
	"log"

	"github.com/kass/restaurant-map/pkg/mapview"
	"github.com/kass/restaurant-map/pkg/models"
)

// Loader fetches the dataset
type Loader interface {
	Load(ctx context.Context) ([]*models.Restaurant, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(ctx context.Context) ([]*models.Restaurant, error)

func (f LoaderFunc) Load(ctx context.Context) ([]*models.Restaurant, error) {
	return f(ctx)
}

// ListRenderer is the sidebar. Calls arrive in display order between a
// Clear and the next Clear.
type ListRenderer interface {
	Clear()
	Heading(title string, count int)
	Row(r *models.Restaurant)
	ShowEmpty(message string)
	ShowError(message string)
}

const (
	NoMatchesMessage = "No restaurants match the current filters."
	LoadErrorMessage = "Could not load restaurants"
)

// RestaurantStore owns the dataset and drives the map and the list
type RestaurantStore struct {
	loader   Loader
	mapView  *mapview.MapView
	list     ListRenderer
	policy   FloorPolicy
	dataset  []*models.Restaurant
	criteria FilterCriteria
	view     View
	loaded   bool
}

// New creates a store. Nothing is loaded until Load is called.
func New(loader Loader, mapView *mapview.MapView, list ListRenderer, policy FloorPolicy) *RestaurantStore {
	return &RestaurantStore{
		loader:  loader,
		mapView: mapView,
		list:    list,
		policy:  policy,
	}
}

// Load fetches the dataset once and renders it unfiltered. On failure the
// list shows an error and the map stays empty.
func (s *RestaurantStore) Load(ctx context.Context) error {
	return s.LoadResult(s.loader.Load(ctx))
}

// LoadResult installs the outcome of a fetch made elsewhere, such as in a
// background command.
func (s *RestaurantStore) LoadResult(restaurants []*models.Restaurant, err error) error {
	if err != nil {
		log.Printf("Failed to load restaurants: %v", err)
		s.mapView.ClearMarkers()
		s.list.Clear()
		s.list.ShowError(fmt.Sprintf("%s: %v", LoadErrorMessage, err))
		return err
	}
	s.SetDataset(restaurants)
	return nil
}

// SetDataset installs an already loaded dataset and renders it unfiltered
func (s *RestaurantStore) SetDataset(restaurants []*models.Restaurant) {
	s.dataset = restaurants
	s.loaded = true
	s.criteria = FilterCriteria{}
	s.Render()
}

// ApplyFilter replaces the criteria and re-renders
func (s *RestaurantStore) ApplyFilter(criteria FilterCriteria) {
	s.criteria = criteria
	s.Render()
}

// Render rebuilds markers and list from the dataset and criteria
func (s *RestaurantStore) Render() {
	s.mapView.ClearMarkers()
	s.list.Clear()

	s.view = BuildView(s.dataset, s.criteria, s.policy)
	if s.view.Empty() {
		s.list.ShowEmpty(NoMatchesMessage)
		return
	}

	s.renderGroup(GroupRated, s.view.Rated)
	s.renderGroup(GroupToVisit, s.view.ToVisit)

	s.mapView.CenterIfNeeded(s.view.Bounds)
}

func (s *RestaurantStore) renderGroup(title string, group []*models.Restaurant) {
	if len(group) == 0 {
		return
	}
	s.list.Heading(title, len(group))
	for _, r := range group {
		if _, err := s.mapView.AddMarker(r); err != nil {
			log.Printf("Skipping marker for %q: %v", r.Name, err)
		}
		s.list.Row(r)
	}
}

// Select focuses the map on a restaurant, as a click on its row does
func (s *RestaurantStore) Select(id string) error {
	return s.mapView.Focus(id)
}

// ShowAll clears the filters and fits the map to everything, regardless
// of the auto-center state.
func (s *RestaurantStore) ShowAll() {
	s.ApplyFilter(FilterCriteria{})
	if !s.view.Empty() {
		s.mapView.FitBounds(s.view.Bounds)
	}
}

// Criteria returns the active filter
func (s *RestaurantStore) Criteria() FilterCriteria {
	return s.criteria
}

// View returns the last rendered view
func (s *RestaurantStore) View() View {
	return s.view
}

// Dataset returns the full dataset
func (s *RestaurantStore) Dataset() []*models.Restaurant {
	return s.dataset
}

// Loaded reports whether a dataset has been installed
func (s *RestaurantStore) Loaded() bool {
	return s.loaded
}

// Policy returns the rating floor policy
func (s *RestaurantStore) Policy() FloorPolicy {
	return s.policy
}
