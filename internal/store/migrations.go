package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "runs: one row per evolution pass",
		SQL: `
CREATE TABLE runs (
    id                INTEGER PRIMARY KEY,
    run_id            TEXT NOT NULL UNIQUE,
    started_at        INTEGER NOT NULL,
    finished_at       INTEGER,
    status            TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'completed', 'skipped', 'failed')),
    reason            TEXT,
    observation_count INTEGER NOT NULL DEFAULT 0,
    instinct_count    INTEGER NOT NULL DEFAULT 0,
    evolved_count     INTEGER NOT NULL DEFAULT 0,
    failed_count      INTEGER NOT NULL DEFAULT 0,
    dry_run           INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_runs_started_at ON runs(started_at DESC);
`,
	},
	{
		Version:     2,
		Description: "evolutions: per-record confidence changes",
		SQL: `
CREATE TABLE evolutions (
    id             INTEGER PRIMARY KEY,
    run_id         TEXT NOT NULL,
    filename       TEXT NOT NULL,
    name           TEXT NOT NULL,
    old_confidence REAL NOT NULL,
    new_confidence REAL NOT NULL,
    relevant_count INTEGER NOT NULL,
    evolved_at     INTEGER NOT NULL,

    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX idx_evolutions_run  ON evolutions(run_id);
CREATE INDEX idx_evolutions_name ON evolutions(name, evolved_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := db.apply(m); err != nil {
			return err
		}
	}
	return nil
}

// apply runs one migration and records it in the same transaction.
func (db *DB) apply(m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
