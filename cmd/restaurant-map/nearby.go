package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/kass/restaurant-map/pkg/models"
	"github.com/kass/restaurant-map/pkg/rtree"
	"github.com/spf13/cobra"
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Find restaurants near a location",
	Long:  `Print the restaurants within a radius of a location, or the k nearest when no radius is given.`,
	RunE:  runNearby,
}

var (
	nearbyLat    float64
	nearbyLon    float64
	nearbyRadius float64
	nearbyK      int
	nearbyJSON   bool
)

func init() {
	nearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "Center latitude")
	nearbyCmd.Flags().Float64Var(&nearbyLon, "lon", 0, "Center longitude")
	nearbyCmd.Flags().Float64Var(&nearbyRadius, "radius", 0, "Radius in km (0 for k nearest)")
	nearbyCmd.Flags().IntVarP(&nearbyK, "k", "k", 5, "Number of nearest restaurants")
	nearbyCmd.Flags().BoolVar(&nearbyJSON, "json", false, "Output results as JSON")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lon")

	rootCmd.AddCommand(nearbyCmd)
}

type nearbyResult struct {
	Restaurant *models.Restaurant `json:"restaurant"`
	DistanceKm float64            `json:"distance_km"`
}

func runNearby(cmd *cobra.Command, args []string) error {
	center := models.Location{Lat: nearbyLat, Lon: nearbyLon}
	if !center.Valid() {
		return fmt.Errorf("invalid location (%v, %v)", nearbyLat, nearbyLon)
	}

	ctx, cancel := signalContext()
	defer cancel()

	restaurants, err := newLoader().Load(ctx)
	if err != nil {
		return err
	}

	results, err := findNearby(restaurants, center, nearbyRadius, nearbyK)
	if err != nil {
		return err
	}

	if nearbyJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	if len(results) == 0 {
		printInfo("No restaurants found")
		return nil
	}
	for i, res := range results {
		fmt.Printf("%d. %s%s%s - %s%.2f km%s\n",
			i+1, colorBold, res.Restaurant.Name, colorReset, colorCyan, res.DistanceKm, colorReset)
	}
	return nil
}

// findNearby returns the restaurants within radiusKm of center, or the k
// nearest when radiusKm is 0, closest first.
func findNearby(restaurants []*models.Restaurant, center models.Location, radiusKm float64, k int) ([]nearbyResult, error) {
	index := rtree.NewGeoIndex()
	byID := make(map[string]*models.Restaurant, len(restaurants))
	points := make([]*models.Point, 0, len(restaurants))
	for _, r := range restaurants {
		loc := r.Location()
		points = append(points, &models.Point{ID: r.ID, Location: &loc})
		byID[r.ID] = r
	}
	if err := index.IndexPoints(points); err != nil {
		return nil, fmt.Errorf("failed to index restaurants: %w", err)
	}

	var found []*models.Point
	if radiusKm > 0 {
		var err error
		found, err = index.QueryRadius(center, radiusKm)
		if err != nil {
			return nil, fmt.Errorf("radius query failed: %w", err)
		}
		log.Printf("Radius query (%.2f km) found %d restaurants", radiusKm, len(found))
	} else {
		found = index.NearestNeighbors(center, k)
	}

	results := make([]nearbyResult, len(found))
	for i, p := range found {
		results[i] = nearbyResult{
			Restaurant: byID[p.ID],
			DistanceKm: rtree.Distance(center.Lat, center.Lon, p.Location.Lat, p.Location.Lon),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	return results, nil
}
