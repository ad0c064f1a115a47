// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sync_runs (
		run_id       VARCHAR PRIMARY KEY,
		mode         VARCHAR NOT NULL,
		since        TIMESTAMP,
		until        TIMESTAMP,
		started_at   TIMESTAMP NOT NULL,
		finished_at  TIMESTAMP,
		duration_ms  BIGINT NOT NULL DEFAULT 0,
		found        INTEGER NOT NULL DEFAULT 0,
		filtered     INTEGER NOT NULL DEFAULT 0,
		inserted     INTEGER NOT NULL DEFAULT 0,
		updated      INTEGER NOT NULL DEFAULT 0,
		skipped      INTEGER NOT NULL DEFAULT 0,
		errors       INTEGER NOT NULL DEFAULT 0,
		pages        INTEGER NOT NULL DEFAULT 0,
		cancelled    BOOLEAN NOT NULL DEFAULT false,
		stages       VARCHAR NOT NULL DEFAULT '{}',
		stage_order  VARCHAR NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at)`,
	`CREATE TABLE IF NOT EXISTS sync_run_errors (
		run_id     VARCHAR NOT NULL,
		seq        INTEGER NOT NULL,
		stage_id   BIGINT NOT NULL,
		record_id  BIGINT NOT NULL DEFAULT 0,
		title      VARCHAR,
		kind       VARCHAR NOT NULL,
		message    VARCHAR,
		PRIMARY KEY (run_id, seq)
	)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
