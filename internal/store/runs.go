package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Run is one evolution pass.
type Run struct {
	ID               int64
	RunID            string
	StartedAt        int64
	FinishedAt       *int64
	Status           string
	Reason           string
	ObservationCount int
	InstinctCount    int
	EvolvedCount     int
	FailedCount      int
	DryRun           bool
}

// Evolution is one record's confidence change within a run.
type Evolution struct {
	ID            int64
	RunID         string
	Filename      string
	Name          string
	OldConfidence float64
	NewConfidence float64
	RelevantCount int
	EvolvedAt     int64
}

// RunTotals are the counters written when a run finishes.
type RunTotals struct {
	ObservationCount int
	InstinctCount    int
	EvolvedCount     int
	FailedCount      int
	// Reason is set when the pass had nothing to do.
	Reason string
	// Err is set when the pass was aborted.
	Err error
}

// StartRun records the beginning of a pass.
func (db *DB) StartRun(runID string, dryRun bool) (*Run, error) {
	now := time.Now().UnixMilli()
	dry := 0
	if dryRun {
		dry = 1
	}

	result, err := db.Exec(`
		INSERT INTO runs (run_id, started_at, status, dry_run)
		VALUES (?, ?, 'running', ?)
	`, runID, now, dry)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Run{
		ID:        id,
		RunID:     runID,
		StartedAt: now,
		Status:    "running",
		DryRun:    dryRun,
	}, nil
}

// FinishRun stamps the run with its totals. An Err marks it failed and a
// non-empty Reason marks it skipped.
func (db *DB) FinishRun(runID string, totals RunTotals) error {
	now := time.Now().UnixMilli()
	status := "completed"
	switch {
	case totals.Err != nil:
		status = "failed"
		totals.Reason = totals.Err.Error()
	case totals.Reason != "":
		status = "skipped"
	}

	result, err := db.Exec(`
		UPDATE runs SET finished_at = ?, status = ?, reason = NULLIF(?, ''),
			observation_count = ?, instinct_count = ?, evolved_count = ?, failed_count = ?
		WHERE run_id = ? AND status = 'running'
	`, now, status, totals.Reason,
		totals.ObservationCount, totals.InstinctCount, totals.EvolvedCount, totals.FailedCount,
		runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no running run %s", runID)
	}
	return nil
}

// AddEvolution records one record's confidence change.
func (db *DB) AddEvolution(e *Evolution) error {
	if e.EvolvedAt == 0 {
		e.EvolvedAt = time.Now().UnixMilli()
	}

	result, err := db.Exec(`
		INSERT INTO evolutions (run_id, filename, name, old_confidence, new_confidence, relevant_count, evolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Filename, e.Name, e.OldConfidence, e.NewConfidence, e.RelevantCount, e.EvolvedAt)
	if err != nil {
		return fmt.Errorf("add evolution: %w", err)
	}

	e.ID, _ = result.LastInsertId()
	return nil
}

// AddEvolutions records a batch of changes in one transaction.
func (db *DB) AddEvolutions(evs []Evolution) error {
	if len(evs) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin evolutions: %w", err)
	}

	now := time.Now().UnixMilli()
	for i := range evs {
		if evs[i].EvolvedAt == 0 {
			evs[i].EvolvedAt = now
		}
		result, err := tx.Exec(`
			INSERT INTO evolutions (run_id, filename, name, old_confidence, new_confidence, relevant_count, evolved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, evs[i].RunID, evs[i].Filename, evs[i].Name, evs[i].OldConfidence, evs[i].NewConfidence,
			evs[i].RelevantCount, evs[i].EvolvedAt)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("add evolution %s: %w", evs[i].Filename, err)
		}
		evs[i].ID, _ = result.LastInsertId()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit evolutions: %w", err)
	}
	return nil
}

const runColumns = `id, run_id, started_at, finished_at, status, reason,
	observation_count, instinct_count, evolved_count, failed_count, dry_run`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	var finished sql.NullInt64
	var reason sql.NullString
	var dry int
	if err := row.Scan(&r.ID, &r.RunID, &r.StartedAt, &finished, &r.Status, &reason,
		&r.ObservationCount, &r.InstinctCount, &r.EvolvedCount, &r.FailedCount, &dry); err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = &finished.Int64
	}
	r.Reason = reason.String
	r.DryRun = dry != 0
	return &r, nil
}

// GetRun returns a run by its run_id, or nil if not found.
func (db *DB) GetRun(runID string) (*Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.Query(`
		SELECT `+runColumns+`
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// EvolutionsForRun returns a run's changes ordered by filename.
func (db *DB) EvolutionsForRun(runID string) ([]Evolution, error) {
	rows, err := db.Query(`
		SELECT id, run_id, filename, name, old_confidence, new_confidence, relevant_count, evolved_at
		FROM evolutions WHERE run_id = ? ORDER BY filename
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("evolutions for run: %w", err)
	}
	defer rows.Close()
	return scanEvolutions(rows)
}

// InstinctHistory returns the most recent applied changes for one instinct
// name, newest first. Changes computed by dry runs are left out.
func (db *DB) InstinctHistory(name string, limit int) ([]Evolution, error) {
	rows, err := db.Query(`
		SELECT e.id, e.run_id, e.filename, e.name, e.old_confidence, e.new_confidence, e.relevant_count, e.evolved_at
		FROM evolutions e JOIN runs r ON r.run_id = e.run_id
		WHERE e.name = ? AND r.dry_run = 0
		ORDER BY e.evolved_at DESC, e.id DESC LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("instinct history: %w", err)
	}
	defer rows.Close()
	return scanEvolutions(rows)
}

func scanEvolutions(rows *sql.Rows) ([]Evolution, error) {
	var evs []Evolution
	for rows.Next() {
		var e Evolution
		if err := rows.Scan(&e.ID, &e.RunID, &e.Filename, &e.Name,
			&e.OldConfidence, &e.NewConfidence, &e.RelevantCount, &e.EvolvedAt); err != nil {
			return nil, fmt.Errorf("scan evolution: %w", err)
		}
		evs = append(evs, e)
	}
	return evs, rows.Err()
}
