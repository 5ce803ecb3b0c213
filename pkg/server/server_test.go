package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kass/restaurant-map/pkg/models"
	"github.com/kass/restaurant-map/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, policy store.FloorPolicy) http.Handler {
	t.Helper()
	dataset := []*models.Restaurant{
		{ID: "a", Name: "A", Lat: 1, Lon: 1, Visited: true, Rating: models.Float(8)},
		{ID: "b", Name: "B", Lat: 2, Lon: 2},
		{ID: "c", Name: "C", Lat: 3, Lon: 3, Visited: true, Rating: models.Float(9)},
	}
	s, err := New(dataset, policy)
	require.NoError(t, err)
	return s.Handler([]string{"http://localhost:3000"})
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func names(rs []*models.Restaurant) []string {
	out := []string{}
	for _, r := range rs {
		out = append(out, r.Name)
	}
	return out
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, store.FloorRatedOnly), "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","restaurants":3}`, rec.Body.String())
}

func TestRestaurantsView(t *testing.T) {
	h := newTestServer(t, store.FloorAll)

	rec := get(t, h, "/api/restaurants")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"C", "A"}, names(resp.Rated))
	assert.Equal(t, []string{"B"}, names(resp.ToVisit))
	require.NotNil(t, resp.Bounds)
	assert.Equal(t, BoundsResponse{South: 1, West: 1, North: 3, East: 3}, *resp.Bounds)

	rec = get(t, h, "/api/restaurants?min_rating=9")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = ViewResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"C"}, names(resp.Rated))
	assert.Empty(t, resp.ToVisit)

	rec = get(t, h, "/api/restaurants?search=zzz")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = ViewResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, store.NoMatchesMessage, resp.Message)
	assert.Nil(t, resp.Bounds)
}

func TestRestaurantsBadRating(t *testing.T) {
	rec := get(t, newTestServer(t, store.FloorRatedOnly), "/api/restaurants?min_rating=high")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNearest(t *testing.T) {
	h := newTestServer(t, store.FloorRatedOnly)

	rec := get(t, h, "/api/restaurants/nearest?lat=2.1&lon=2.1&k=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []struct {
			Restaurant models.Restaurant `json:"restaurant"`
			Distance   float64           `json:"distance_km"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "B", resp.Results[0].Restaurant.Name)
	assert.Less(t, resp.Results[0].Distance, resp.Results[1].Distance)

	testCases := []string{
		"/api/restaurants/nearest?lat=x&lon=1",
		"/api/restaurants/nearest?lat=95&lon=1",
		"/api/restaurants/nearest?lat=1&lon=1&k=0",
		"/api/restaurants/nearest?lat=1&lon=1&k=500",
	}
	for _, url := range testCases {
		t.Run(url, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, get(t, h, url).Code)
		})
	}
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, store.FloorRatedOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
