// Package rtree keeps an R-Tree of live marker positions so the map layer
// can answer "which marker is under this point" and "which markers are in
// view" without scanning the marker table.
package rtree

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/kass/restaurant-map/pkg/models"
)

const (
	tolerance   = 0.0001
	minChildren = 2
	maxChildren = 8
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// spatialPoint wraps a point to implement rtreego.Spatial interface
type spatialPoint struct {
	*models.Point
	rect *rtreego.Rect
}

func (sp *spatialPoint) Bounds() *rtreego.Rect {
	return sp.rect
}

// GeoIndex is a thread-safe R-Tree of points keyed by ID
type GeoIndex struct {
	tree      *rtreego.Rtree
	byID      map[string]*spatialPoint
	mu        sync.RWMutex
	itemCount atomic.Int64
}

// NewGeoIndex creates an empty index
func NewGeoIndex() *GeoIndex {
	return &GeoIndex{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
		byID: make(map[string]*spatialPoint),
	}
}

// Insert adds a point, replacing any point already indexed under the same ID
func (g *GeoIndex) Insert(point *models.Point) error {
	if point == nil || point.Location == nil {
		return fmt.Errorf("point has no location")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.insertLocked(point)
	return nil
}

// IndexPoints indexes a batch of points. Points without a location are skipped.
func (g *GeoIndex) IndexPoints(points []*models.Point) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, point := range points {
		if point == nil || point.Location == nil {
			continue
		}
		g.insertLocked(point)
	}
	return nil
}

func (g *GeoIndex) insertLocked(point *models.Point) {
	if old, ok := g.byID[point.ID]; ok {
		g.tree.Delete(old)
		g.itemCount.Add(-1)
	}

	p := rtreego.Point{point.Location.Lat, point.Location.Lon}
	sp := &spatialPoint{point, p.ToRect(tolerance)}
	g.tree.Insert(sp)
	g.byID[point.ID] = sp
	g.itemCount.Add(1)
}

// Remove deletes the point with the given ID and reports whether it existed
func (g *GeoIndex) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	sp, ok := g.byID[id]
	if !ok {
		return false
	}
	g.tree.Delete(sp)
	delete(g.byID, id)
	g.itemCount.Add(-1)
	return true
}

// QueryBox returns all points within the given bounding box
func (g *GeoIndex) QueryBox(box models.BoundingBox) ([]*models.Point, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if box.TopRight.Lat < box.BottomLeft.Lat || box.TopRight.Lon < box.BottomLeft.Lon {
		return nil, fmt.Errorf("invalid bounding box: top-right below bottom-left")
	}

	bottomLeft := rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon}
	rectSize := []float64{
		math.Max(box.TopRight.Lat-box.BottomLeft.Lat, tolerance),
		math.Max(box.TopRight.Lon-box.BottomLeft.Lon, tolerance),
	}

	bounds, err := rtreego.NewRect(bottomLeft, rectSize)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	results := g.tree.SearchIntersect(bounds)

	// The tree matches on padded rects, so filter strictly
	points := make([]*models.Point, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialPoint)
		if !ok || item.Point == nil || item.Point.Location == nil {
			continue
		}
		if box.Contains(*item.Point.Location) {
			points = append(points, item.Point)
		}
	}

	sortByID(points)
	return points, nil
}

// QueryRadius returns all points within radiusKm of center
func (g *GeoIndex) QueryRadius(center models.Location, radiusKm float64) ([]*models.Point, error) {
	if radiusKm <= 0 {
		return nil, fmt.Errorf("invalid radius: %v", radiusKm)
	}

	// Convert radius to degrees (approximate)
	deg := (radiusKm / earthRadius) * (180 / math.Pi)
	lonDeg := deg
	if c := math.Cos(center.Lat * math.Pi / 180); c > 0.01 {
		lonDeg = deg / c
	}

	candidates, err := g.QueryBox(models.BoundingBox{
		BottomLeft: models.Location{Lat: center.Lat - deg, Lon: center.Lon - lonDeg},
		TopRight:   models.Location{Lat: center.Lat + deg, Lon: center.Lon + lonDeg},
	})
	if err != nil {
		return nil, err
	}

	points := candidates[:0]
	for _, p := range candidates {
		if Distance(center.Lat, center.Lon, p.Location.Lat, p.Location.Lon) <= radiusKm {
			points = append(points, p)
		}
	}
	return points, nil
}

// NearestNeighbors returns up to n points closest to center, nearest first
func (g *GeoIndex) NearestNeighbors(center models.Location, n int) []*models.Point {
	if n <= 0 {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	type nearestResult struct {
		point    *models.Point
		distance float64
	}

	// The tree ranks by planar degrees; over-fetch and re-rank by great-circle distance
	k := n * 2
	if k > len(g.byID) {
		k = len(g.byID)
	}
	if k == 0 {
		return nil
	}
	results := g.tree.NearestNeighbors(k, rtreego.Point{center.Lat, center.Lon})

	ranked := make([]nearestResult, 0, len(results))
	for _, result := range results {
		sp, ok := result.(*spatialPoint)
		if !ok || sp == nil {
			continue
		}
		ranked = append(ranked, nearestResult{
			point:    sp.Point,
			distance: Distance(center.Lat, center.Lon, sp.Point.Location.Lat, sp.Point.Location.Lon),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	points := make([]*models.Point, len(ranked))
	for i, r := range ranked {
		points[i] = r.point
	}
	return points
}

// Count returns the number of indexed points
func (g *GeoIndex) Count() int64 {
	return g.itemCount.Load()
}

// Clear removes all points from the index
func (g *GeoIndex) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
	g.byID = make(map[string]*spatialPoint)
	g.itemCount.Store(0)
}

func sortByID(points []*models.Point) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].ID < points[j].ID
	})
}

// Distance calculates the Haversine distance between two points in kilometers
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
