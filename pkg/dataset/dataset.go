// Package dataset loads the restaurant data file from the first reachable
// candidate path: a local file, an http(s) URL or a PostGIS database.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kass/restaurant-map/pkg/models"
)

// ErrNoDataset is returned when every candidate path failed
var ErrNoDataset = errors.New("no restaurant dataset could be loaded")

// DefaultPaths are tried when no candidate path is configured
var DefaultPaths = []string{"data/restaurants.json", "restaurants.json"}

// idNamespace scopes the name-based restaurant ids
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("restaurant-map"))

// DBSource reads restaurants from a database DSN
type DBSource func(ctx context.Context, dsn string) ([]*models.Restaurant, error)

// Loader tries each path in order; the first one that yields a dataset wins
type Loader struct {
	Paths  []string
	Client *http.Client
	// DB serves postgres:// paths. Nil makes them fail.
	DB DBSource
}

// NewLoader returns a loader over paths, or DefaultPaths when empty
func NewLoader(paths []string, timeout time.Duration) *Loader {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Loader{
		Paths:  paths,
		Client: &http.Client{Timeout: timeout},
	}
}

// Load returns the valid restaurants from the first candidate path that
// can be read and decoded. Invalid records are skipped and logged.
func (l *Loader) Load(ctx context.Context) ([]*models.Restaurant, error) {
	var errs []error
	for _, path := range l.Paths {
		restaurants, err := l.loadPath(ctx, path)
		if err != nil {
			log.Printf("Dataset candidate %s unavailable: %v", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		log.Printf("Loaded %d restaurants from %s", len(restaurants), path)
		return restaurants, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no candidate paths", ErrNoDataset)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoDataset, errors.Join(errs...))
}

func (l *Loader) loadPath(ctx context.Context, path string) ([]*models.Restaurant, error) {
	switch {
	case isDSN(path):
		if l.DB == nil {
			return nil, fmt.Errorf("database sources are not enabled")
		}
		restaurants, err := l.DB(ctx, path)
		if err != nil {
			return nil, err
		}
		return Prepare(restaurants), nil

	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		return l.fetch(ctx, path)

	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()
		return Decode(file)
	}
}

func (l *Loader) fetch(ctx context.Context, url string) ([]*models.Restaurant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return Decode(resp.Body)
}

// ErrMissingCoordinates marks a record without a lat or lon value
var ErrMissingCoordinates = errors.New("restaurant has no coordinates")

type rawDataset struct {
	Restaurants []json.RawMessage `json:"restaurants"`
}

// coordinates tells an absent or null lat/lon apart from a zero one
type coordinates struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Decode parses a data file and prepares its records. A record that does
// not decode is skipped; only a broken document fails.
func Decode(r io.Reader) ([]*models.Restaurant, error) {
	var ds rawDataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if ds.Restaurants == nil {
		return nil, fmt.Errorf("dataset has no restaurants list")
	}

	records := make([]*models.Restaurant, 0, len(ds.Restaurants))
	for i, raw := range ds.Restaurants {
		record, err := decodeRecord(raw)
		if err != nil {
			log.Printf("Skipping restaurant #%d: %v", i, err)
			continue
		}
		records = append(records, record)
	}
	return Prepare(records), nil
}

// decodeRecord returns nil for a null record so Prepare logs it
func decodeRecord(raw json.RawMessage) (*models.Restaurant, error) {
	var record *models.Restaurant
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if record == nil {
		return nil, nil
	}

	var coords coordinates
	if err := json.Unmarshal(raw, &coords); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if coords.Lat == nil || coords.Lon == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingCoordinates, record.Name)
	}
	return record, nil
}

// Prepare drops invalid records and assigns every record a unique, stable
// id. A record whose id repeats an earlier one gets a derived id instead.
func Prepare(records []*models.Restaurant) []*models.Restaurant {
	restaurants := make([]*models.Restaurant, 0, len(records))
	seen := make(map[string]int)
	used := make(map[string]bool, len(records))
	for i, r := range records {
		if r == nil {
			log.Printf("Skipping restaurant #%d: empty record", i)
			continue
		}
		if err := r.Validate(); err != nil {
			log.Printf("Skipping restaurant #%d: %v", i, err)
			continue
		}

		base := r.Name + "|" + strconv.FormatFloat(r.Lat, 'f', -1, 64) + "|" + strconv.FormatFloat(r.Lon, 'f', -1, 64)
		key := base
		if n := seen[base]; n > 0 {
			key += "|" + strconv.Itoa(n)
		}
		seen[base]++

		if r.ID != "" && used[r.ID] {
			log.Printf("Restaurant #%d repeats id %q, deriving a new one", i, r.ID)
			r.ID = ""
		}
		if r.ID == "" {
			r.ID = uuid.NewSHA1(idNamespace, []byte(key)).String()
			for n := 1; used[r.ID]; n++ {
				r.ID = uuid.NewSHA1(idNamespace, []byte(key+"#"+strconv.Itoa(n))).String()
			}
		}
		used[r.ID] = true
		restaurants = append(restaurants, r)
	}
	return restaurants
}

func isDSN(path string) bool {
	return strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://")
}
