package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	ddlStatements := []string{
		// spots table: the full record is kept as JSON in data; the
		// columns beside it are copies used for filtering and ordering.
		`CREATE TABLE IF NOT EXISTS spots (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
			created_at TEXT NOT NULL,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			data TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Moderation queues filter by status and sort by creation time
		`CREATE INDEX IF NOT EXISTS idx_spots_status_created ON spots(status, created_at)`,

		`CREATE INDEX IF NOT EXISTS idx_spots_created ON spots(created_at)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
