package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AddFavorite records the pair once. added is false when it already existed.
func (db *DB) AddFavorite(ctx context.Context, externalID string, restaurantID int64) (added bool, err error) {
	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		userID, err := ensureUser(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if err := restaurantExists(ctx, tx, restaurantID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO user_favorites (user_id, restaurant_id) VALUES (?, ?)`, userID, restaurantID)
		if err != nil {
			return fmt.Errorf("add favorite: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		added = n > 0
		return nil
	})
	return added, err
}

// RemoveFavorite deletes the pair. removed is false when there was nothing to delete.
func (db *DB) RemoveFavorite(ctx context.Context, externalID string, restaurantID int64) (removed bool, err error) {
	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM user_favorites
WHERE restaurant_id = ? AND user_id = (SELECT id FROM users WHERE external_id = ?)`, restaurantID, externalID)
		if err != nil {
			return fmt.Errorf("remove favorite: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

// ListFavorites returns the user's favourite restaurants, most recently added first.
func (db *DB) ListFavorites(ctx context.Context, externalID string) ([]Favorite, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT `+restaurantColumns+`, f.added_at
FROM user_favorites f
JOIN users u ON u.id = f.user_id
JOIN restaurants r ON r.id = f.restaurant_id
WHERE u.external_id = ?
ORDER BY f.added_at DESC, f.id DESC`, externalID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := []Favorite{}
	for rows.Next() {
		var addedAt time.Time
		fav := favoriteScanner{rows: rows, addedAt: &addedAt}
		r, err := scanRestaurant(fav)
		if err != nil {
			return nil, err
		}
		out = append(out, Favorite{Restaurant: r, AddedAt: addedAt})
	}
	return out, rows.Err()
}

// favoriteScanner appends the added_at column to a restaurant scan.
type favoriteScanner struct {
	rows    *sql.Rows
	addedAt *time.Time
}

func (s favoriteScanner) Scan(dest ...interface{}) error {
	return s.rows.Scan(append(dest, s.addedAt)...)
}
