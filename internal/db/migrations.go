package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: index transactions by date for the trend windows.
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,

	// Migration 2: index items by stock level for the low-stock queries.
	`CREATE INDEX IF NOT EXISTS idx_items_stock ON items(stock) WHERE deleted_at IS NULL`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
