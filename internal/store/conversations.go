package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendConversation inserts rows in order inside one transaction.
func (db *DB) AppendConversation(ctx context.Context, rows []ConversationRow) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO conversations (user_key, role, content, tool_calls, tool_call_id, name, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare conversation insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range rows {
			ts := r.Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			if _, err := stmt.ExecContext(ctx, r.UserKey, r.Role, r.Content, r.ToolCalls, r.ToolCallID, r.Name, ts.UTC()); err != nil {
				return fmt.Errorf("insert conversation: %w", err)
			}
		}
		return nil
	})
}

// LoadConversation returns the stored rows of userKey, oldest first.
func (db *DB) LoadConversation(ctx context.Context, userKey string) ([]ConversationRow, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT id, user_key, role, content, tool_calls, tool_call_id, name, timestamp
FROM conversations WHERE user_key = ? ORDER BY id`, userKey)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	defer rows.Close()

	var out []ConversationRow
	for rows.Next() {
		var r ConversationRow
		if err := rows.Scan(&r.ID, &r.UserKey, &r.Role, &r.Content, &r.ToolCalls, &r.ToolCallID, &r.Name, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteConversationBefore drops rows of userKey whose id is below keepFromID.
func (db *DB) DeleteConversationBefore(ctx context.Context, userKey string, keepFromID int64) (int64, error) {
	var n int64
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE user_key = ? AND id < ?`, userKey, keepFromID)
		if err != nil {
			return fmt.Errorf("trim conversation: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// ClearConversation removes every row of userKey and reports how many were removed.
func (db *DB) ClearConversation(ctx context.Context, userKey string) (int64, error) {
	var n int64
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE user_key = ?`, userKey)
		if err != nil {
			return fmt.Errorf("clear conversation: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// ConversationStats lists every identity with stored history, most recent first.
func (db *DB) ConversationStats(ctx context.Context) ([]ConversationStat, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT user_key, COUNT(*), MAX(id) FROM conversations GROUP BY user_key ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, fmt.Errorf("conversation stats: %w", err)
	}

	type pending struct {
		stat   ConversationStat
		lastID int64
	}
	var list []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.stat.UserKey, &p.stat.Entries, &p.lastID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan conversation stats: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]ConversationStat, 0, len(list))
	for _, p := range list {
		if err := db.sql.QueryRowContext(ctx, `SELECT timestamp FROM conversations WHERE id = ?`, p.lastID).Scan(&p.stat.LastActive); err != nil {
			return nil, fmt.Errorf("conversation last active: %w", err)
		}
		out = append(out, p.stat)
	}
	return out, nil
}

// DeleteIdleConversations removes the whole history of identities whose newest
// row is older than before.
func (db *DB) DeleteIdleConversations(ctx context.Context, before time.Time) ([]string, error) {
	stats, err := db.ConversationStats(ctx)
	if err != nil {
		return nil, err
	}

	var evicted []string
	for _, s := range stats {
		if !s.LastActive.Before(before) {
			continue
		}
		if _, err := db.ClearConversation(ctx, s.UserKey); err != nil {
			return evicted, err
		}
		evicted = append(evicted, s.UserKey)
	}
	return evicted, nil
}
