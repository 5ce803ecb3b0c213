package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kass/restaurant-map/pkg/models"
	_ "github.com/lib/pq"
)

// RestaurantDB stores the restaurant dataset in a PostGIS table
type RestaurantDB struct {
	db *sql.DB
}

// Open connects to the database at dsn and verifies the connection
func Open(ctx context.Context, dsn string) (*RestaurantDB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &RestaurantDB{db: db}, nil
}

// LoadDSN opens dsn, reads every restaurant and closes the connection.
// It serves postgres:// dataset paths.
func LoadDSN(ctx context.Context, dsn string) ([]*models.Restaurant, error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.LoadRestaurants(ctx)
}

// InitSchema recreates the restaurants table
func (p *RestaurantDB) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
		`DROP TABLE IF EXISTS restaurants;`,
		`CREATE TABLE restaurants (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			location GEOMETRY(POINT, 4326) NOT NULL,
			visited BOOLEAN NOT NULL DEFAULT FALSE,
			rating DOUBLE PRECISION,
			review TEXT,
			address TEXT
		);`,
		`CREATE INDEX idx_restaurants_location ON restaurants USING GIST(location);`,
	}

	for _, query := range queries {
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// BulkInsertRestaurants writes restaurants in one transaction, keeping
// their order. progress, if set, is called after each row.
func (p *RestaurantDB) BulkInsertRestaurants(ctx context.Context, restaurants []*models.Restaurant, progress func(done, total int)) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO restaurants (id, position, name, location, visited, rating, review, address)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326), $6, $7, $8, $9)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range restaurants {
		_, err := stmt.ExecContext(ctx, r.ID, i, r.Name, r.Lon, r.Lat, r.Visited,
			nullFloat(r.Rating), nullString(r.Review), nullString(r.Address))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert restaurant %q: %w", r.Name, err)
		}
		if progress != nil {
			progress(i+1, len(restaurants))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// LoadRestaurants reads the whole table in insertion order
func (p *RestaurantDB) LoadRestaurants(ctx context.Context) ([]*models.Restaurant, error) {
	return p.query(ctx, `
		SELECT id, name, ST_Y(location), ST_X(location), visited, rating, review, address
		FROM restaurants
		ORDER BY position
	`)
}

// QueryBox returns the restaurants inside box
func (p *RestaurantDB) QueryBox(ctx context.Context, box models.BoundingBox) ([]*models.Restaurant, error) {
	return p.query(ctx, `
		SELECT id, name, ST_Y(location), ST_X(location), visited, rating, review, address
		FROM restaurants
		WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY position
	`, box.BottomLeft.Lon, box.BottomLeft.Lat, box.TopRight.Lon, box.TopRight.Lat)
}

func (p *RestaurantDB) query(ctx context.Context, query string, args ...any) ([]*models.Restaurant, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []*models.Restaurant
	for rows.Next() {
		var (
			r       models.Restaurant
			rating  sql.NullFloat64
			review  sql.NullString
			address sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Lat, &r.Lon, &r.Visited, &rating, &review, &address); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if rating.Valid {
			r.Rating = models.Float(rating.Float64)
		}
		if review.Valid {
			r.Review = models.Text(review.String)
		}
		if address.Valid {
			r.Address = models.Text(address.String)
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

// Count returns the number of restaurants in the table
func (p *RestaurantDB) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM restaurants").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count restaurants: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (p *RestaurantDB) Close() error {
	return p.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
