package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database holding restaurants, users and their history.
type DB struct {
	sql  *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies pending migrations.
func Open(ctx context.Context, path string) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fbErrors.InvalidInput("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{sql: conn, path: path}
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Path() string {
	return db.path
}

func (db *DB) Close() error {
	if db == nil || db.sql == nil {
		return nil
	}
	return db.sql.Close()
}

// Migrate applies every migration newer than PRAGMA user_version.
func (db *DB) Migrate(ctx context.Context) error {
	var version int
	if err := db.sql.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		err := db.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1))
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		slog.Debug("Applied migration", "version", i+1, "path", db.path)
	}
	return nil
}

// SchemaVersion reports the applied migration count.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.sql.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}

// WithTx runs fn inside one transaction. Errors are classified through the
// shared mapper so callers can test them with errors.Is.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			slog.Warn("Rollback failed", "error", rbErr)
		}
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

var mapper = fbErrors.NewDefaultErrorMapper()

// classify leaves categorised errors alone and tags raw driver errors with a
// category while keeping the driver message.
func classify(err error) error {
	if err == nil || mapper.Category(err) != "Unknown" {
		return err
	}
	mapped := mapper.MapError(err)
	if mapped == err {
		return err
	}
	return fmt.Errorf("%w (%v)", mapped, err)
}
