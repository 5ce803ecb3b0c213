// Package config reads the YAML configuration, with .env and environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kass/restaurant-map/pkg/mapview"
	"github.com/kass/restaurant-map/pkg/models"
	"github.com/kass/restaurant-map/pkg/store"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file
const (
	EnvData        = "RESTAURANT_MAP_DATA"
	EnvAddr        = "RESTAURANT_MAP_ADDR"
	EnvDatabaseURL = "DATABASE_URL"
)

// Config structure for YAML configuration
type Config struct {
	Data struct {
		Paths          []string `yaml:"paths"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
	} `yaml:"data"`
	Map struct {
		CenterLat  float64 `yaml:"center_lat"`
		CenterLon  float64 `yaml:"center_lon"`
		Zoom       int     `yaml:"zoom"`
		FocusZoom  int     `yaml:"focus_zoom"`
		MaxFitZoom int     `yaml:"max_fit_zoom"`
		Padding    int     `yaml:"padding"`
	} `yaml:"map"`
	Filter struct {
		FloorPolicy  string    `yaml:"floor_policy"`
		RatingFloors []float64 `yaml:"rating_floors"`
	} `yaml:"filter"`
	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	PostGIS struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgis"`
	Log struct {
		File string `yaml:"file"`
	} `yaml:"log"`
}

// Default returns the built-in configuration
func Default() *Config {
	var c Config
	c.Data.TimeoutSeconds = 10
	opts := mapview.DefaultOptions()
	c.Map.CenterLat = opts.Center.Lat
	c.Map.CenterLon = opts.Center.Lon
	c.Map.Zoom = opts.Zoom
	c.Map.FocusZoom = opts.FocusZoom
	c.Map.MaxFitZoom = opts.MaxFitZoom
	c.Map.Padding = opts.Padding
	c.Filter.FloorPolicy = store.FloorRatedOnly.String()
	c.Filter.RatingFloors = []float64{5, 6, 7, 8, 9}
	c.Server.Addr = ":8080"
	c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	c.Log.File = "restaurant-map.log"
	return &c
}

// Load reads path, falling back to path+".example" and then to the
// defaults when neither exists. A .env file and the environment are
// applied on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = os.ReadFile(path + ".example")
		if err == nil {
			log.Printf("Using %s.example (copy to %s for custom settings)", path, path)
		}
	}
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not read .env: %v", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvData); v != "" {
		var paths []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		c.Data.Paths = paths
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.PostGIS.DSN = v
	}
}

// Validate checks values that would break the view
func (c *Config) Validate() error {
	if _, err := store.ParseFloorPolicy(c.Filter.FloorPolicy); err != nil {
		return fmt.Errorf("invalid filter.floor_policy: %w", err)
	}
	center := models.Location{Lat: c.Map.CenterLat, Lon: c.Map.CenterLon}
	if !center.Valid() {
		return fmt.Errorf("invalid map center (%v, %v)", c.Map.CenterLat, c.Map.CenterLon)
	}
	if c.Map.Zoom < 0 || c.Map.FocusZoom < 0 || c.Map.MaxFitZoom < 0 {
		return fmt.Errorf("map zoom levels must not be negative")
	}
	return nil
}

// FloorPolicy returns the parsed rating floor policy
func (c *Config) FloorPolicy() store.FloorPolicy {
	p, _ := store.ParseFloorPolicy(c.Filter.FloorPolicy)
	return p
}

// MapOptions returns the view parameters for a MapView
func (c *Config) MapOptions() mapview.Options {
	opts := mapview.DefaultOptions()
	opts.Center = models.Location{Lat: c.Map.CenterLat, Lon: c.Map.CenterLon}
	opts.Zoom = c.Map.Zoom
	opts.FocusZoom = c.Map.FocusZoom
	opts.MaxFitZoom = c.Map.MaxFitZoom
	opts.Padding = c.Map.Padding
	return opts
}

// DataTimeout returns the fetch timeout for http paths
func (c *Config) DataTimeout() time.Duration {
	return time.Duration(c.Data.TimeoutSeconds) * time.Second
}
