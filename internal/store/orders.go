package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
)

const DefaultOrderHistoryLimit = 5

// SaveOrder inserts one order. Retried turns insert again; there is no dedupe key.
func (db *DB) SaveOrder(ctx context.Context, o NewOrder) (int64, error) {
	if len(o.MenuItems) == 0 {
		return 0, fbErrors.InvalidInput("menu_items is empty")
	}
	if o.TotalPrice < 0 {
		return 0, fbErrors.InvalidInput("total_price must not be negative")
	}
	items, err := json.Marshal(o.MenuItems)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		userID, err := ensureUser(ctx, tx, o.ExternalID)
		if err != nil {
			return err
		}
		if err := restaurantExists(ctx, tx, o.RestaurantID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
INSERT INTO order_history (user_id, restaurant_id, menu_items, total_price, mood)
VALUES (?, ?, ?, ?, ?)`, userID, o.RestaurantID, string(items), o.TotalPrice, strings.TrimSpace(o.Mood))
		if err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ListOrders returns the user's most recent orders, newest first.
func (db *DB) ListOrders(ctx context.Context, externalID string, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = DefaultOrderHistoryLimit
	}
	rows, err := db.sql.QueryContext(ctx, `
SELECT o.id, o.user_id, o.restaurant_id, r.name, o.menu_items, o.total_price, o.order_date, o.mood, o.rating, o.review
FROM order_history o
JOIN users u ON u.id = o.user_id
JOIN restaurants r ON r.id = o.restaurant_id
WHERE u.external_id = ?
ORDER BY o.order_date DESC, o.id DESC
LIMIT ?`, externalID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var (
			o      Order
			items  string
			rating sql.NullInt64
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.RestaurantID, &o.Restaurant, &items, &o.TotalPrice, &o.OrderDate, &o.Mood, &rating, &o.Review); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &o.MenuItems); err != nil {
			o.MenuItems = []string{items}
		}
		if rating.Valid {
			v := int(rating.Int64)
			o.Rating = &v
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// AddReview rates an order owned by the user. rating must be within 1..5.
func (db *DB) AddReview(ctx context.Context, externalID string, orderID int64, rating int, review string) error {
	if rating < 1 || rating > 5 {
		return fbErrors.InvalidInput("rating must be between 1 and 5")
	}
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `
SELECT u.external_id FROM order_history o JOIN users u ON u.id = o.user_id WHERE o.id = ?`, orderID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != externalID) {
			return fbErrors.NotFound(fmt.Sprintf("order %d", orderID))
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE order_history SET rating = ?, review = ? WHERE id = ?`, rating, strings.TrimSpace(review), orderID)
		if err != nil {
			return fmt.Errorf("add review: %w", err)
		}
		return nil
	})
}
