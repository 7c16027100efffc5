package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Items are stored as JSON documents so
// free-form fields survive; AUTOINCREMENT keeps deleted ids from coming back.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    doc        TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// migrations are applied in order after the schema. Each one must be
// idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: index the action tag used by list filters.
	`CREATE INDEX IF NOT EXISTS idx_items_action ON items(json_extract(doc, '$.action'))`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
