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

const userColumns = `id, external_id, username, default_budget, default_location, preferences, created_at, updated_at`

// GetOrCreateUser returns the user for externalID, creating it on first contact.
// A non-empty username refreshes the stored one.
func (db *DB) GetOrCreateUser(ctx context.Context, externalID, username string) (*User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, fbErrors.InvalidInput("user id is empty")
	}

	var user *User
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO users (external_id, username) VALUES (?, ?)
ON CONFLICT(external_id) DO UPDATE SET
	username = CASE WHEN excluded.username <> '' THEN excluded.username ELSE users.username END,
	updated_at = CASE WHEN excluded.username <> '' AND excluded.username <> users.username THEN CURRENT_TIMESTAMP ELSE users.updated_at END`,
			externalID, strings.TrimSpace(username))
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		user, err = getUser(ctx, tx, externalID)
		return err
	})
	return user, err
}

// GetUser looks a user up by external id.
func (db *DB) GetUser(ctx context.Context, externalID string) (*User, error) {
	return getUser(ctx, db.sql, externalID)
}

// UpdatePreferences changes only the fields that are set. The user is created
// when missing so a first message can carry preferences.
func (db *DB) UpdatePreferences(ctx context.Context, externalID string, budget *int, location *string) (*User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, fbErrors.InvalidInput("user id is empty")
	}

	var user *User
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := ensureUser(ctx, tx, externalID); err != nil {
			return err
		}

		sets := []string{}
		args := []interface{}{}
		if budget != nil && *budget > 0 {
			sets = append(sets, "default_budget = ?")
			args = append(args, *budget)
		}
		if location != nil && strings.TrimSpace(*location) != "" {
			sets = append(sets, "default_location = ?")
			args = append(args, strings.TrimSpace(*location))
		}
		if len(sets) > 0 {
			sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
			args = append(args, externalID)
			query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE external_id = ?"
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update preferences: %w", err)
			}
		}

		var err error
		user, err = getUser(ctx, tx, externalID)
		return err
	})
	return user, err
}

// SetPreference stores a free-form key in the user's preferences document.
// An empty value deletes the key.
func (db *DB) SetPreference(ctx context.Context, externalID, key, value string) error {
	externalID = strings.TrimSpace(externalID)
	key = strings.TrimSpace(key)
	if externalID == "" || key == "" {
		return fbErrors.InvalidInput("user id and key are required")
	}

	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := ensureUser(ctx, tx, externalID); err != nil {
			return err
		}
		var raw string
		if err := tx.QueryRowContext(ctx, `SELECT preferences FROM users WHERE external_id = ?`, externalID).Scan(&raw); err != nil {
			return fmt.Errorf("read preferences: %w", err)
		}
		prefs := map[string]string{}
		if strings.TrimSpace(raw) != "" {
			if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
				prefs = map[string]string{}
			}
		}
		if value == "" {
			delete(prefs, key)
		} else {
			prefs[key] = value
		}
		encoded, err := json.Marshal(prefs)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET preferences = ?, updated_at = CURRENT_TIMESTAMP WHERE external_id = ?`, string(encoded), externalID)
		if err != nil {
			return fmt.Errorf("write preferences: %w", err)
		}
		return nil
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func getUser(ctx context.Context, q queryer, externalID string) (*User, error) {
	var (
		u     User
		prefs string
	)
	err := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID).
		Scan(&u.ID, &u.ExternalID, &u.Username, &u.DefaultBudget, &u.DefaultLocation, &prefs, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fbErrors.NotFound(fmt.Sprintf("user %s", externalID))
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if prefs != "" {
		u.Preferences = []byte(prefs)
	}
	return &u, nil
}

// ensureUser returns the internal id for externalID, inserting a bare row when needed.
func ensureUser(ctx context.Context, tx *sql.Tx, externalID string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO users (external_id) VALUES (?)`, externalID); err != nil {
		return 0, fmt.Errorf("ensure user: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE external_id = ?`, externalID).Scan(&id); err != nil {
		return 0, fmt.Errorf("ensure user: %w", err)
	}
	return id, nil
}
