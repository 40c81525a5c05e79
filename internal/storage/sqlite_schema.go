package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// WAL mode and other pragmas are configured in NewSQLiteRecorder.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createCountersTable(ctx, db); err != nil {
		return err
	}
	if err := createMetaTable(ctx, db); err != nil {
		return err
	}
	return createInteractionsTable(ctx, db)
}

func createCountersTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS intent_counters (
		intent TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create intent_counters table: %w", err)
	}

	return nil
}

func createMetaTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS stats_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create stats_meta table: %w", err)
	}

	return nil
}

func createInteractionsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TEXT NOT NULL,
		session_id TEXT NOT NULL,
		intent TEXT NOT NULL,
		goal TEXT NOT NULL DEFAULT '',
		input TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create interactions table: %w", err)
	}

	return nil
}
