package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generation run kinds.
const (
	RunKindDaily = "daily"
	RunKindBatch = "batch"
)

// Generation run outcomes.
const (
	RunStatusOK       = "ok"
	RunStatusFallback = "fallback"
	RunStatusFailed   = "failed"
)

// ErrRunNotFound is returned when a generation run does not exist.
var ErrRunNotFound = errors.New("models: generation run not found")

// runTimeLayout keeps created_at sortable as text.
const runTimeLayout = "2006-01-02 15:04:05"

// GenerationRun is the audit record of one generation request.
type GenerationRun struct {
	ID         string    `json:"id"`
	UID        string    `json:"uid"`
	Kind       string    `json:"kind"`
	Range      string    `json:"range,omitempty"`
	StartDate  string    `json:"startDate"`
	Days       int       `json:"days"`
	Status     string    `json:"status"`
	Model      string    `json:"model,omitempty"`
	TokensUsed int       `json:"tokensUsed"`
	DurationMS int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CreateGenerationRun inserts run, assigning an ID and creation time when
// they are unset.
func CreateGenerationRun(db *sql.DB, run *GenerationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC().Truncate(time.Second)

	_, err := db.Exec(
		`INSERT INTO generation_runs
		   (id, uid, kind, range_name, start_date, days, status, model, tokens_used, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.UID, run.Kind, run.Range, run.StartDate, run.Days, run.Status,
		run.Model, run.TokensUsed, run.DurationMS, run.Error, run.CreatedAt.Format(runTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("models: create generation run: %w", err)
	}
	return nil
}

// GetGenerationRun returns the run with the given ID.
func GetGenerationRun(db *sql.DB, id string) (*GenerationRun, error) {
	row := db.QueryRow(
		`SELECT id, uid, kind, range_name, start_date, days, status, model, tokens_used, duration_ms, error, created_at
		 FROM generation_runs WHERE id = ?`, id,
	)
	run, err := scanGenerationRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get generation run %s: %w", id, err)
	}
	return run, nil
}

// ListGenerationRuns returns up to limit runs for uid, newest first.
func ListGenerationRuns(db *sql.DB, uid string, limit int) ([]*GenerationRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT id, uid, kind, range_name, start_date, days, status, model, tokens_used, duration_ms, error, created_at
		 FROM generation_runs
		 WHERE uid = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		uid, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("models: list generation runs for %q: %w", uid, err)
	}
	defer rows.Close()

	var runs []*GenerationRun
	for rows.Next() {
		run, err := scanGenerationRun(rows)
		if err != nil {
			return nil, fmt.Errorf("models: scan generation run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteGenerationRunsBefore removes runs created before cutoff.
func DeleteGenerationRunsBefore(db *sql.DB, cutoff time.Time) (int64, error) {
	result, err := db.Exec(
		`DELETE FROM generation_runs WHERE created_at < ?`,
		cutoff.UTC().Format(runTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("models: delete old generation runs: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGenerationRun(row rowScanner) (*GenerationRun, error) {
	run := &GenerationRun{}
	var createdAt string
	err := row.Scan(&run.ID, &run.UID, &run.Kind, &run.Range, &run.StartDate, &run.Days,
		&run.Status, &run.Model, &run.TokensUsed, &run.DurationMS, &run.Error, &createdAt)
	if err != nil {
		return nil, err
	}
	run.CreatedAt, err = time.Parse(runTimeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return run, nil
}
