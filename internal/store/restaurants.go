package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/geo"
)

const (
	restaurantColumns = `r.id, r.name, r.location, r.category, r.price_range, r.avg_price, r.rating, r.cuisine_type, r.opening_hours, r.contact, r.description, r.latitude, r.longitude`

	DefaultSearchLimit    = 10
	DefaultRecommendLimit = 5
)

// RestaurantQuery filters restaurant searches. Near takes precedence over
// Location: when set, only restaurants within RadiusKM are returned, nearest first.
type RestaurantQuery struct {
	Location    string
	Near        *geo.Point
	RadiusKM    float64
	Budget      int
	CuisineType string
	Category    string
	Limit       int
}

func (db *DB) SearchRestaurants(ctx context.Context, q RestaurantQuery) ([]Restaurant, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	where := []string{"1 = 1"}
	args := []interface{}{}
	if q.Budget > 0 {
		where = append(where, "r.avg_price <= ?")
		args = append(args, q.Budget)
	}
	if v := strings.TrimSpace(q.CuisineType); v != "" {
		where = append(where, "r.cuisine_type LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(q.Category); v != "" {
		where = append(where, "r.category LIKE ?")
		args = append(args, "%"+v+"%")
	}

	if q.Near != nil {
		where = append(where, "r.latitude IS NOT NULL", "r.longitude IS NOT NULL")
		rows, err := db.queryRestaurants(ctx, `SELECT `+restaurantColumns+` FROM restaurants r WHERE `+strings.Join(where, " AND "), args...)
		if err != nil {
			return nil, err
		}
		return nearest(rows, *q.Near, q.RadiusKM, limit), nil
	}

	if v := strings.TrimSpace(q.Location); v != "" {
		where = append(where, "r.location LIKE ?")
		args = append(args, "%"+v+"%")
	}
	args = append(args, limit)
	return db.queryRestaurants(ctx, `SELECT `+restaurantColumns+` FROM restaurants r WHERE `+strings.Join(where, " AND ")+` ORDER BY r.rating DESC, r.id LIMIT ?`, args...)
}

func nearest(candidates []Restaurant, origin geo.Point, radiusKM float64, limit int) []Restaurant {
	out := make([]Restaurant, 0, len(candidates))
	for _, r := range candidates {
		d := geo.HaversineKM(origin, geo.Point{Lat: *r.Latitude, Lon: *r.Longitude})
		if radiusKM > 0 && d > radiusKM {
			continue
		}
		dist := d
		r.DistanceKM = &dist
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DistanceKM < *out[j].DistanceKM
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetRestaurant returns the restaurant with id or an ErrNotFound error.
func (db *DB) GetRestaurant(ctx context.Context, id int64) (*Restaurant, error) {
	rows, err := db.queryRestaurants(ctx, `SELECT `+restaurantColumns+` FROM restaurants r WHERE r.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fbErrors.NotFound(fmt.Sprintf("restaurant %d", id))
	}
	return &rows[0], nil
}

// GetRestaurantDetail returns the restaurant and its available menu items.
func (db *DB) GetRestaurantDetail(ctx context.Context, id int64) (*RestaurantDetail, error) {
	r, err := db.GetRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	menu, err := db.menuItems(ctx, `WHERE m.restaurant_id = ? AND m.is_available = 1`, id)
	if err != nil {
		return nil, err
	}
	return &RestaurantDetail{Restaurant: *r, Menu: menu}, nil
}

// RecommendByCategories matches any of categories against category or
// cuisine type, highest rating first.
func (db *DB) RecommendByCategories(ctx context.Context, categories []string, budget int, location string, limit int) ([]Restaurant, error) {
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}

	where := []string{"1 = 1"}
	args := []interface{}{}
	if len(categories) > 0 {
		ors := make([]string, 0, len(categories))
		for _, c := range categories {
			ors = append(ors, "(r.category LIKE ? OR r.cuisine_type LIKE ?)")
			args = append(args, "%"+c+"%", "%"+c+"%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if budget > 0 {
		where = append(where, "r.avg_price <= ?")
		args = append(args, budget)
	}
	if v := strings.TrimSpace(location); v != "" {
		where = append(where, "r.location LIKE ?")
		args = append(args, "%"+v+"%")
	}
	args = append(args, limit)

	return db.queryRestaurants(ctx, `SELECT `+restaurantColumns+` FROM restaurants r WHERE `+strings.Join(where, " AND ")+` ORDER BY r.rating DESC, r.id LIMIT ?`, args...)
}

// ListRestaurants returns every restaurant ordered by id.
func (db *DB) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	return db.queryRestaurants(ctx, `SELECT `+restaurantColumns+` FROM restaurants r ORDER BY r.id`)
}

func (db *DB) CountRestaurants(ctx context.Context) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurants`).Scan(&n)
	return n, err
}

// MenuEntry is a menu item with the name of the restaurant serving it.
type MenuEntry struct {
	MenuItem
	RestaurantName string `json:"restaurant_name"`
}

// ListMenuEntries returns all available menu items across restaurants.
func (db *DB) ListMenuEntries(ctx context.Context) ([]MenuEntry, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT m.id, m.restaurant_id, m.name, m.description, m.price, m.category, m.is_available, m.image_url, r.name
FROM menu_items m JOIN restaurants r ON r.id = m.restaurant_id
WHERE m.is_available = 1
ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	defer rows.Close()

	var out []MenuEntry
	for rows.Next() {
		var e MenuEntry
		if err := rows.Scan(&e.ID, &e.RestaurantID, &e.Name, &e.Description, &e.Price, &e.Category, &e.IsAvailable, &e.ImageURL, &e.RestaurantName); err != nil {
			return nil, fmt.Errorf("scan menu: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) menuItems(ctx context.Context, clause string, args ...interface{}) ([]MenuItem, error) {
	rows, err := db.sql.QueryContext(ctx, `SELECT m.id, m.restaurant_id, m.name, m.description, m.price, m.category, m.is_available, m.image_url FROM menu_items m `+clause+` ORDER BY m.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	defer rows.Close()

	out := []MenuItem{}
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Description, &m.Price, &m.Category, &m.IsAvailable, &m.ImageURL); err != nil {
			return nil, fmt.Errorf("scan menu: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *DB) queryRestaurants(ctx context.Context, query string, args ...interface{}) ([]Restaurant, error) {
	return queryRestaurantsWith(ctx, db.sql, query, args...)
}

func queryRestaurantsWith(ctx context.Context, q queryer, query string, args ...interface{}) ([]Restaurant, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query restaurants: %w", err)
	}
	defer rows.Close()

	out := []Restaurant{}
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRestaurant(s rowScanner) (Restaurant, error) {
	var (
		r        Restaurant
		lat, lon sql.NullFloat64
	)
	err := s.Scan(&r.ID, &r.Name, &r.Location, &r.Category, &r.PriceRange, &r.AvgPrice, &r.Rating,
		&r.CuisineType, &r.OpeningHours, &r.Contact, &r.Description, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fbErrors.NotFound("restaurant")
	}
	if err != nil {
		return r, fmt.Errorf("scan restaurant: %w", err)
	}
	if lat.Valid && lon.Valid {
		r.Latitude = &lat.Float64
		r.Longitude = &lon.Float64
	}
	return r, nil
}

func restaurantExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM restaurants WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fbErrors.NotFound(fmt.Sprintf("restaurant %d", id))
	}
	return err
}
