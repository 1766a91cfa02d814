package planstore

import (
	"database/sql"
	"fmt"
)

// Migration is one schema step.
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_runs_table",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_options_and_task_index",
		Up:      migrationV2,
	},
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}
		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	return v, err
}

func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			task_name TEXT NOT NULL,
			task_file TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK (status IN ('solved', 'failed', 'error')),
			meeting TEXT NOT NULL DEFAULT '',
			plan TEXT NOT NULL DEFAULT '',
			plan_cost INTEGER NOT NULL DEFAULT 0,
			expanded INTEGER NOT NULL DEFAULT 0,
			generated INTEGER NOT NULL DEFAULT 0,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	return err
}

func migrationV2(tx *sql.Tx) error {
	if _, err := tx.Exec(`ALTER TABLE runs ADD COLUMN options TEXT NOT NULL DEFAULT ''`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE INDEX idx_runs_task_created ON runs (task_name, created_at)`)
	return err
}
