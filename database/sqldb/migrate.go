package sqldb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = map[string][]string{
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS detection_history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			image_data LONGBLOB,
			detection_results LONGTEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS detection_stats (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			total_detections BIGINT NOT NULL DEFAULT 0,
			total_diseases_found BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS detection_history (
			id BIGSERIAL PRIMARY KEY,
			image_data BYTEA,
			detection_results TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS detection_stats (
			id BIGSERIAL PRIMARY KEY,
			total_detections BIGINT NOT NULL DEFAULT 0,
			total_diseases_found BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS detection_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			image_data BLOB,
			detection_results TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS detection_stats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			total_detections INTEGER NOT NULL DEFAULT 0,
			total_diseases_found INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
}

const (
	queryCountStats = `SELECT COUNT(*) FROM detection_stats`
	querySeedStats  = `INSERT INTO detection_stats (total_detections, total_diseases_found) VALUES (0, 0)`
)

// Migrate creates the detection tables and the single stats row.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements, ok := schema[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var rows int
	if err := db.GetContext(ctx, &rows, queryCountStats); err != nil {
		return fmt.Errorf("count stats: %w", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := db.ExecContext(ctx, querySeedStats); err != nil {
		return fmt.Errorf("seed stats: %w", err)
	}

	return nil
}
