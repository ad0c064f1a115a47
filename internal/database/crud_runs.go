// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/funnelsync/internal/models"
)

// DefaultRunLimit and MaxRunLimit bound ListRuns.
const (
	DefaultRunLimit = 20
	MaxRunLimit     = 500
)

// SaveRun stores a finished run and its errors in one transaction.
func (db *DB) SaveRun(ctx context.Context, s *models.RunSummary) error {
	stages, err := json.Marshal(s.Stages)
	if err != nil {
		return fmt.Errorf("failed to encode stages: %w", err)
	}
	order, err := json.Marshal(s.StageOrder)
	if err != nil {
		return fmt.Errorf("failed to encode stage order: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_runs (
			run_id, mode, since, until, started_at, finished_at, duration_ms,
			found, filtered, inserted, updated, skipped, errors, pages,
			cancelled, stages, stage_order
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, string(s.Mode.Kind), nullTime(s.Mode.Since), nullTime(s.Mode.Until),
		s.StartedAt.UTC(), nullTime(s.FinishedAt), s.DurationMs,
		s.Totals.Found, s.Totals.Filtered, s.Totals.Inserted, s.Totals.Updated,
		s.Totals.Skipped, s.Totals.Errors, s.Totals.Pages,
		s.Cancelled, string(stages), string(order),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", s.RunID, err)
	}

	for i := range s.Errors {
		e := &s.Errors[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sync_run_errors (run_id, seq, stage_id, record_id, title, kind, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.RunID, i, e.StageID, e.RecordID, e.Title, e.Kind, e.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert error %d of run %s: %w", i, s.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", s.RunID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit is clamped to
// [1, MaxRunLimit]; zero or negative uses DefaultRunLimit.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	if limit > MaxRunLimit {
		limit = MaxRunLimit
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, mode, since, until, started_at, finished_at, duration_ms,
			found, filtered, inserted, updated, skipped, errors, pages,
			cancelled, stages, stage_order
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer closeWithLog(rows, "rows")

	runs := []models.RunSummary{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for i := range runs {
		errs, err := db.runErrors(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Errors = errs
	}

	return runs, nil
}

func scanRun(rows *sql.Rows) (models.RunSummary, error) {
	var (
		s                    models.RunSummary
		mode                 string
		since, until, finish sql.NullTime
		stages, order        string
	)

	err := rows.Scan(
		&s.RunID, &mode, &since, &until, &s.StartedAt, &finish, &s.DurationMs,
		&s.Totals.Found, &s.Totals.Filtered, &s.Totals.Inserted, &s.Totals.Updated,
		&s.Totals.Skipped, &s.Totals.Errors, &s.Totals.Pages, &s.Cancelled, &stages, &order,
	)
	if err != nil {
		return s, fmt.Errorf("failed to scan run: %w", err)
	}

	s.Mode = models.Mode{Kind: models.ModeKind(mode)}
	if since.Valid {
		s.Mode.Since = since.Time.UTC()
	}
	if until.Valid {
		s.Mode.Until = until.Time.UTC()
	}
	s.StartedAt = s.StartedAt.UTC()
	if finish.Valid {
		s.FinishedAt = finish.Time.UTC()
	}

	if err := json.Unmarshal([]byte(stages), &s.Stages); err != nil {
		return s, fmt.Errorf("failed to decode stages of run %s: %w", s.RunID, err)
	}
	if err := json.Unmarshal([]byte(order), &s.StageOrder); err != nil {
		return s, fmt.Errorf("failed to decode stage order of run %s: %w", s.RunID, err)
	}
	return s, nil
}

func (db *DB) runErrors(ctx context.Context, runID string) ([]models.RunError, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT stage_id, record_id, COALESCE(title, ''), kind, COALESCE(message, '')
		FROM sync_run_errors
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors of run %s: %w", runID, err)
	}
	defer closeWithLog(rows, "rows")

	errs := []models.RunError{}
	for rows.Next() {
		var e models.RunError
		if err := rows.Scan(&e.StageID, &e.RecordID, &e.Title, &e.Kind, &e.Message); err != nil {
			return nil, fmt.Errorf("failed to scan run error: %w", err)
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
