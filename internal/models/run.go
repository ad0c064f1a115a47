// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package models

import (
	"fmt"
	"strings"
	"time"
)

// ModeKind selects how an orchestration run treats the records it fetches.
type ModeKind string

const (
	// ModeFull routes every fetched record through mapping and change detection.
	ModeFull ModeKind = "full"
	// ModeIncremental drops records created outside [Since, Until) before mapping.
	ModeIncremental ModeKind = "incremental"
	// ModeDryRun classifies every record but never writes to the destination.
	ModeDryRun ModeKind = "dry_run"
)

// Mode is the run parameter passed to the orchestrator.
// Until is optional; a zero Until leaves the window open-ended.
type Mode struct {
	Kind  ModeKind  `json:"kind"`
	Since time.Time `json:"since,omitempty"`
	Until time.Time `json:"until,omitempty"`
}

// FullMode returns a full-sync mode.
func FullMode() Mode { return Mode{Kind: ModeFull} }

// DryRunMode returns a dry-run mode.
func DryRunMode() Mode { return Mode{Kind: ModeDryRun} }

// IncrementalSince returns an open-ended incremental mode starting at since.
func IncrementalSince(since time.Time) Mode {
	return Mode{Kind: ModeIncremental, Since: since}
}

// ParseModeKind converts user input to a ModeKind.
func ParseModeKind(s string) (ModeKind, error) {
	switch ModeKind(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFull, "":
		return ModeFull, nil
	case ModeIncremental:
		return ModeIncremental, nil
	case ModeDryRun, "dry-run", "dryrun":
		return ModeDryRun, nil
	default:
		return "", fmt.Errorf("unknown sync mode %q", s)
	}
}

// InWindow reports whether t falls in the incremental window.
func (m Mode) InWindow(t time.Time) bool {
	if !m.Since.IsZero() && t.Before(m.Since) {
		return false
	}
	if !m.Until.IsZero() && !t.Before(m.Until) {
		return false
	}
	return true
}

// Writes reports whether the mode is allowed to write to the destination.
func (m Mode) Writes() bool {
	return m.Kind != ModeDryRun
}

// Error kinds recorded in RunError.Kind.
const (
	ErrorKindPagination = "pagination"
	ErrorKindMapping    = "mapping"
	ErrorKindLookup     = "lookup"
	ErrorKindWrite      = "write"
)

// StageCounters accumulates per-stage (and run-wide) record outcomes.
type StageCounters struct {
	FunnelID int64 `json:"funnel_id,omitempty"`
	Found    int   `json:"found"`
	Filtered int   `json:"filtered"`
	Inserted int   `json:"inserted"`
	Updated  int   `json:"updated"`
	Skipped  int   `json:"skipped"`
	Errors   int   `json:"errors"`
	Pages    int   `json:"pages"`
	Aborted  bool  `json:"aborted,omitempty"`
}

// Add sums other into c. FunnelID and Aborted are left untouched.
func (c *StageCounters) Add(other StageCounters) {
	c.Found += other.Found
	c.Filtered += other.Filtered
	c.Inserted += other.Inserted
	c.Updated += other.Updated
	c.Skipped += other.Skipped
	c.Errors += other.Errors
	c.Pages += other.Pages
}

// RunError is one structured failure recorded during a run.
// RecordID is 0 for stage-level (pagination) failures.
type RunError struct {
	StageID  int64  `json:"stage_id"`
	RecordID int64  `json:"record_id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// RunResult is the mutable record of a single orchestration run.
// The orchestrator owns it until Run returns; afterwards it is read-only.
type RunResult struct {
	RunID      string                   `json:"run_id"`
	Mode       Mode                     `json:"mode"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Stages     map[int64]*StageCounters `json:"stages"`
	StageOrder []int64                  `json:"stage_order"`
	Totals     StageCounters            `json:"totals"`
	Errors     []RunError               `json:"errors"`
	Cancelled  bool                     `json:"cancelled,omitempty"`
}

// NewRunResult creates an empty result for a run starting at startedAt.
func NewRunResult(runID string, mode Mode, startedAt time.Time) *RunResult {
	return &RunResult{
		RunID:     runID,
		Mode:      mode,
		StartedAt: startedAt,
		Stages:    make(map[int64]*StageCounters),
		Errors:    []RunError{},
	}
}

// Stage returns the counters for stageID, creating them on first use.
func (r *RunResult) Stage(funnelID, stageID int64) *StageCounters {
	if c, ok := r.Stages[stageID]; ok {
		return c
	}
	c := &StageCounters{FunnelID: funnelID}
	r.Stages[stageID] = c
	r.StageOrder = append(r.StageOrder, stageID)
	return c
}

// AddError appends a structured error. Record-level kinds also bump the
// stage error counter; pagination errors mark the stage aborted instead, so
// Found always equals Filtered+Inserted+Updated+Skipped+Errors.
func (r *RunResult) AddError(stageID int64, e RunError) {
	e.StageID = stageID
	r.Errors = append(r.Errors, e)
	c, ok := r.Stages[stageID]
	if !ok {
		return
	}
	if e.Kind == ErrorKindPagination {
		c.Aborted = true
		return
	}
	c.Errors++
}

// RunSummary is the finalized, caller-facing view of a run.
type RunSummary struct {
	RunID      string                  `json:"run_id"`
	Mode       Mode                    `json:"mode"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	DurationMs int64                   `json:"duration_ms"`
	Stages     map[int64]StageCounters `json:"stages"`
	StageOrder []int64                 `json:"stage_order"`
	Totals     StageCounters           `json:"totals"`
	Errors     []RunError              `json:"errors"`
	Cancelled  bool                    `json:"cancelled,omitempty"`
}

// Succeeded reports whether the run finished without any recorded error.
func (s *RunSummary) Succeeded() bool {
	return len(s.Errors) == 0 && !s.Cancelled
}
