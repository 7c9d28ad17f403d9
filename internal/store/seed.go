package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

//go:embed seed_data.yaml
var seedData []byte

type seedRestaurant struct {
	Restaurant `yaml:",inline"`
	Menu       []MenuItem `yaml:"menu"`
}

type seedFile struct {
	Restaurants []seedRestaurant `yaml:"restaurants"`
}

// SampleRestaurants parses the embedded sample data.
func SampleRestaurants() ([]RestaurantDetail, error) {
	var f seedFile
	if err := yaml.Unmarshal(seedData, &f); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	out := make([]RestaurantDetail, 0, len(f.Restaurants))
	for _, r := range f.Restaurants {
		out = append(out, RestaurantDetail{Restaurant: r.Restaurant, Menu: r.Menu})
	}
	return out, nil
}

// Seed loads the sample restaurants when the table is empty. With force it
// tops up a non-empty table, adding samples whose name and location are not
// present yet. It returns the number of restaurants inserted.
func (db *DB) Seed(ctx context.Context, force bool) (int, error) {
	if !force {
		n, err := db.CountRestaurants(ctx)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			slog.Debug("Seed skipped, restaurants present", "count", n)
			return 0, nil
		}
	}

	samples, err := SampleRestaurants()
	if err != nil {
		return 0, err
	}

	inserted := 0
	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, s := range samples {
			var exists int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM restaurants WHERE name = ? AND location = ?`,
				s.Name, s.Location).Scan(&exists)
			if err != nil {
				return err
			}
			if exists > 0 {
				continue
			}
			if _, err := insertRestaurant(ctx, tx, s); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Seeded restaurants", "count", inserted, "path", db.path)
	return inserted, nil
}

func insertRestaurant(ctx context.Context, tx *sql.Tx, r RestaurantDetail) (int64, error) {
	res, err := tx.ExecContext(ctx, `
INSERT INTO restaurants (name, location, category, price_range, avg_price, rating, cuisine_type, opening_hours, contact, description, latitude, longitude)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Location, r.Category, r.PriceRange, r.AvgPrice, r.Rating, r.CuisineType,
		r.OpeningHours, r.Contact, r.Description, r.Latitude, r.Longitude)
	if err != nil {
		return 0, fmt.Errorf("insert restaurant %q: %w", r.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, m := range r.Menu {
		_, err := tx.ExecContext(ctx, `
INSERT INTO menu_items (restaurant_id, name, description, price, category, is_available, image_url)
VALUES (?, ?, ?, ?, ?, 1, ?)`, id, m.Name, m.Description, m.Price, m.Category, m.ImageURL)
		if err != nil {
			return 0, fmt.Errorf("insert menu item %q: %w", m.Name, err)
		}
	}
	return id, nil
}
