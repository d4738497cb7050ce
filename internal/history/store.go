// Package history persists per-run backup outcomes locally.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/tidesafe/tidesafe/internal/backup"
)

// Trigger records what started a run.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// Run is one completed backup attempt.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Uploaded   int
	Skipped    int
	Failed     int
	Errors     []string
	Trigger    string
}

// NewRun builds a history row from a run summary.
func NewRun(sum backup.Summary, trigger string) *Run {
	return &Run{
		ID:         uuid.New(),
		StartedAt:  sum.StartedAt,
		FinishedAt: sum.FinishedAt,
		Uploaded:   sum.Uploaded,
		Skipped:    sum.Skipped,
		Failed:     sum.Failed,
		Errors:     sum.Errors,
		Trigger:    trigger,
	}
}

// Store implements run-history persistence using SQLite.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open creates the history database in the config directory.
func Open(configDir string, logger zerolog.Logger) (*Store, error) {
	dbPath := filepath.Join(configDir, "history.db")

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger.With().Str("component", "history_store").Logger(),
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the necessary tables.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			uploaded INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			errors TEXT,
			trigger_kind TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores one completed run.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	var errsJSON sql.NullString
	if len(run.Errors) > 0 {
		data, err := json.Marshal(run.Errors)
		if err != nil {
			return fmt.Errorf("marshal run errors: %w", err)
		}
		errsJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO runs (id, started_at, finished_at, uploaded, skipped, failed, errors, trigger_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID.String(),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Uploaded,
		run.Skipped,
		run.Failed,
		errsJSON,
		run.Trigger,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	s.logger.Debug().Str("run_id", run.ID.String()).Msg("run recorded")
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Run, error) {
	query := `
		SELECT id, started_at, finished_at, uploaded, skipped, failed, errors, trigger_kind
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// LastRun returns the most recent run, or nil when no run has been
// recorded yet.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	runs, err := s.ListRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		idStr, startedStr, finishedStr, trigger string
		uploaded, skipped, failed               int
		errsJSON                                sql.NullString
	)

	if err := rows.Scan(&idStr, &startedStr, &finishedStr, &uploaded, &skipped, &failed, &errsJSON, &trigger); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	started, err := time.Parse(time.RFC3339Nano, startedStr)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	finished, err := time.Parse(time.RFC3339Nano, finishedStr)
	if err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	run := &Run{
		ID:         id,
		StartedAt:  started,
		FinishedAt: finished,
		Uploaded:   uploaded,
		Skipped:    skipped,
		Failed:     failed,
		Trigger:    trigger,
	}

	if errsJSON.Valid {
		if err := json.Unmarshal([]byte(errsJSON.String), &run.Errors); err != nil {
			return nil, fmt.Errorf("parse run errors: %w", err)
		}
	}

	return run, nil
}
