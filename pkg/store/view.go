package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kass/restaurant-map/pkg/models"
	"github.com/paulmach/orb"
)

// FloorPolicy decides which restaurants a rating floor applies to
type FloorPolicy int

const (
	// FloorRatedOnly applies the floor to rated restaurants; to-visit
	// entries are always shown.
	FloorRatedOnly FloorPolicy = iota
	// FloorAll applies the floor to every restaurant, so unrated entries
	// disappear as soon as a floor is set.
	FloorAll
)

func (p FloorPolicy) String() string {
	switch p {
	case FloorRatedOnly:
		return "rated-only"
	case FloorAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseFloorPolicy parses "rated-only" or "all"
func ParseFloorPolicy(s string) (FloorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rated-only":
		return FloorRatedOnly, nil
	case "all":
		return FloorAll, nil
	default:
		return FloorRatedOnly, fmt.Errorf("unknown floor policy %q", s)
	}
}

// FilterCriteria is the active filter. The zero value matches everything.
type FilterCriteria struct {
	MinRating *float64 `json:"min_rating,omitempty"`
	Search    string   `json:"search,omitempty"`
}

// Matches reports whether r passes the search text and the rating floor
func (c FilterCriteria) Matches(r *models.Restaurant, policy FloorPolicy) bool {
	if c.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(c.Search)) {
		return false
	}
	if c.MinRating == nil {
		return true
	}
	if !r.IsRated() {
		return policy == FloorRatedOnly
	}
	return *r.Rating >= *c.MinRating
}

// IsZero reports whether no filter is set
func (c FilterCriteria) IsZero() bool {
	return c.MinRating == nil && c.Search == ""
}

// Group names used as sidebar headings
const (
	GroupRated   = "Rated"
	GroupToVisit = "To Visit"
)

// View is the derived display state for one dataset and criteria
type View struct {
	Rated   []*models.Restaurant `json:"rated"`
	ToVisit []*models.Restaurant `json:"to_visit"`
	Bounds  orb.Bound            `json:"bounds"`
}

// Empty reports whether nothing matched
func (v View) Empty() bool {
	return len(v.Rated) == 0 && len(v.ToVisit) == 0
}

// Len returns the number of restaurants in the view
func (v View) Len() int {
	return len(v.Rated) + len(v.ToVisit)
}

// All returns the restaurants in display order: rated first, then to-visit
func (v View) All() []*models.Restaurant {
	all := make([]*models.Restaurant, 0, v.Len())
	all = append(all, v.Rated...)
	return append(all, v.ToVisit...)
}

// BuildView filters, partitions and sorts dataset. Rated restaurants are
// ordered by rating descending; ties keep dataset order. It has no side
// effects.
func BuildView(dataset []*models.Restaurant, criteria FilterCriteria, policy FloorPolicy) View {
	var v View
	var points orb.MultiPoint

	for _, r := range dataset {
		if r == nil || !criteria.Matches(r, policy) {
			continue
		}
		if r.IsRated() {
			v.Rated = append(v.Rated, r)
		} else {
			v.ToVisit = append(v.ToVisit, r)
		}
		points = append(points, orb.Point{r.Lon, r.Lat})
	}

	sort.SliceStable(v.Rated, func(i, j int) bool {
		return *v.Rated[i].Rating > *v.Rated[j].Rating
	})

	if len(points) > 0 {
		v.Bounds = points.Bound()
	}
	return v
}

// BoundsOf returns the bound of a set of restaurants
func BoundsOf(restaurants []*models.Restaurant) orb.Bound {
	points := make(orb.MultiPoint, 0, len(restaurants))
	for _, r := range restaurants {
		points = append(points, orb.Point{r.Lon, r.Lat})
	}
	return points.Bound()
}
