// Package store exports aggregation runs to a SQLite file so that runs over
// different workbooks, or before and after edits, can be compared with SQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
	_ "modernc.org/sqlite"
)

// ModeUpdateOnly is the run mode stored for runs without an aggregation result.
const ModeUpdateOnly = "update_only"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		workbook TEXT NOT NULL,
		mode TEXT NOT NULL,
		header_row INTEGER NOT NULL,
		blank_label TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS counts (
		run_id TEXT NOT NULL REFERENCES runs(id),
		sheet TEXT NOT NULL,
		sheet_title TEXT NOT NULL,
		key TEXT NOT NULL,
		count INTEGER NOT NULL,
		blank INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS key_mappings (
		run_id TEXT NOT NULL REFERENCES runs(id),
		term TEXT NOT NULL,
		original_key TEXT NOT NULL,
		reporting_key TEXT NOT NULL,
		count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS updates (
		run_id TEXT NOT NULL REFERENCES runs(id),
		sheet TEXT NOT NULL,
		row INTEGER NOT NULL,
		col INTEGER NOT NULL,
		original_value TEXT NOT NULL,
		new_value TEXT NOT NULL,
		key TEXT NOT NULL,
		term TEXT NOT NULL,
		trigger_column TEXT NOT NULL,
		trigger_value TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_counts_run ON counts(run_id, sheet)`,
	`CREATE INDEX IF NOT EXISTS idx_key_mappings_run ON key_mappings(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_updates_run ON updates(run_id)`,
}

// Store is a SQLite database of exported runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one exported aggregation.
type Run struct {
	// ID is assigned by Save when empty.
	ID       string
	Workbook string
	Result   *models.AggregationResult
	Mappings []models.KeyMapping
	Updates  []models.UpdateRecord
}

// Save writes run in one transaction and returns its id. A run without a Result
// only records its updates.
func (s *Store) Save(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	res := run.Result
	if res == nil {
		res = models.NewAggregationResult(ModeUpdateOnly, 0, "")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, workbook, mode, header_row, blank_label, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Workbook, res.Mode, res.HeaderRow, res.BlankLabel, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	counts, err := tx.PrepareContext(ctx, `INSERT INTO counts (run_id, sheet, sheet_title, key, count, blank) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer counts.Close()
	for _, sheet := range res.ProcessedSheetNames {
		for _, key := range res.ReportKeys() {
			n := res.Count(sheet, key)
			if n == 0 {
				continue
			}
			blank := key == res.BlankLabel && res.BlankTotal() > 0
			if _, err := counts.ExecContext(ctx, run.ID, sheet, res.Title(sheet), key, n, blank); err != nil {
				return "", fmt.Errorf("insert count: %w", err)
			}
		}
	}

	mappings, err := tx.PrepareContext(ctx, `INSERT INTO key_mappings (run_id, term, original_key, reporting_key, count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer mappings.Close()
	for _, m := range run.Mappings {
		if _, err := mappings.ExecContext(ctx, run.ID, m.Term, m.OriginalKey, m.ReportingKey, m.Count); err != nil {
			return "", fmt.Errorf("insert key mapping: %w", err)
		}
	}

	updates, err := tx.PrepareContext(ctx, `INSERT INTO updates (run_id, sheet, row, col, original_value, new_value, key, term, trigger_column, trigger_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer updates.Close()
	for _, u := range run.Updates {
		if _, err := updates.ExecContext(ctx, run.ID, u.Sheet, u.Row, u.Column, u.OriginalValue, u.NewValue,
			u.Key, u.Term, u.TriggerColumn, u.TriggerValue); err != nil {
			return "", fmt.Errorf("insert update: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("run_id", run.ID).Int("updates", len(run.Updates)).Msg("run exported")
	return run.ID, nil
}

// Count is one stored (sheet, key, count) triple.
type Count struct {
	Sheet string
	Key   string
	Count int
	Blank bool
}

// Counts returns the stored counts of a run ordered by sheet then key.
func (s *Store) Counts(ctx context.Context, runID string) ([]Count, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sheet, key, count, blank FROM counts WHERE run_id = ? ORDER BY sheet, key`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Sheet, &c.Key, &c.Count, &c.Blank); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Totals returns the per-key totals of a run.
func (s *Store) Totals(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, SUM(count) FROM counts WHERE run_id = ? GROUP BY key`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

// UpdateCount returns how many updates were stored for a run.
func (s *Store) UpdateCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM updates WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
