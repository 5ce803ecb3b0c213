// Package server exposes the filtered restaurant view over HTTP
package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kass/restaurant-map/pkg/models"
	"github.com/kass/restaurant-map/pkg/rtree"
	"github.com/kass/restaurant-map/pkg/store"
	"github.com/paulmach/orb"
	"github.com/rs/cors"
)

const maxNearest = 50

// BoundsResponse is the JSON form of a view's bounds
type BoundsResponse struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// ViewResponse is the body of GET /api/restaurants
type ViewResponse struct {
	Criteria store.FilterCriteria `json:"criteria"`
	Rated    []*models.Restaurant `json:"rated"`
	ToVisit  []*models.Restaurant `json:"to_visit"`
	Bounds   *BoundsResponse      `json:"bounds,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// Server answers view queries over an immutable dataset
type Server struct {
	dataset []*models.Restaurant
	byID    map[string]*models.Restaurant
	index   *rtree.GeoIndex
	policy  store.FloorPolicy
}

// New indexes dataset for nearest-restaurant lookups
func New(dataset []*models.Restaurant, policy store.FloorPolicy) (*Server, error) {
	s := &Server{
		dataset: dataset,
		byID:    make(map[string]*models.Restaurant, len(dataset)),
		index:   rtree.NewGeoIndex(),
		policy:  policy,
	}

	points := make([]*models.Point, 0, len(dataset))
	for _, r := range dataset {
		loc := r.Location()
		points = append(points, &models.Point{ID: r.ID, Location: &loc})
		s.byID[r.ID] = r
	}
	if err := s.index.IndexPoints(points); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the gin engine wrapped in CORS handling
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api := router.Group("/api")
	api.GET("/health", s.health)
	api.GET("/restaurants", s.restaurants)
	api.GET("/restaurants/nearest", s.nearest)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	return c.Handler(router)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "restaurants": len(s.dataset)})
}

func (s *Server) restaurants(c *gin.Context) {
	criteria := store.FilterCriteria{Search: c.Query("search")}
	if raw := c.Query("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_rating: " + raw})
			return
		}
		criteria.MinRating = &v
	}

	view := store.BuildView(s.dataset, criteria, s.policy)
	resp := ViewResponse{
		Criteria: criteria,
		Rated:    nonNil(view.Rated),
		ToVisit:  nonNil(view.ToVisit),
	}
	if view.Empty() {
		resp.Message = store.NoMatchesMessage
	} else {
		resp.Bounds = boundsResponse(view.Bounds)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) nearest(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	center := models.Location{Lat: lat, Lon: lon}
	if errLat != nil || errLon != nil || !center.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon must be valid coordinates"})
		return
	}

	k, err := strconv.Atoi(c.DefaultQuery("k", "5"))
	if err != nil || k < 1 || k > maxNearest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "k must be between 1 and 50"})
		return
	}

	points := s.index.NearestNeighbors(center, k)
	results := make([]gin.H, 0, len(points))
	for _, p := range points {
		results = append(results, gin.H{
			"restaurant":  s.byID[p.ID],
			"distance_km": rtree.Distance(lat, lon, p.Location.Lat, p.Location.Lon),
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func boundsResponse(b orb.Bound) *BoundsResponse {
	return &BoundsResponse{
		South: b.Min.Lat(),
		West:  b.Min.Lon(),
		North: b.Max.Lat(),
		East:  b.Max.Lon(),
	}
}

func nonNil(rs []*models.Restaurant) []*models.Restaurant {
	if rs == nil {
		return []*models.Restaurant{}
	}
	return rs
}
