// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"github.com/tomtom215/funnelsync/internal/models"
)

// Finalize turns a finished run record into its summary. It does not modify
// r: per-stage counters are copied and summed into Totals, errors are passed
// through as recorded.
func Finalize(r *models.RunResult) models.RunSummary {
	summary := models.RunSummary{
		RunID:      r.RunID,
		Mode:       r.Mode,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Stages:     make(map[int64]models.StageCounters, len(r.Stages)),
		StageOrder: append([]int64(nil), r.StageOrder...),
		Errors:     r.Errors,
		Cancelled:  r.Cancelled,
	}

	for _, stageID := range r.StageOrder {
		c, ok := r.Stages[stageID]
		if !ok {
			continue
		}
		summary.Stages[stageID] = *c
		summary.Totals.Add(*c)
	}

	if !r.FinishedAt.IsZero() && r.FinishedAt.After(r.StartedAt) {
		summary.DurationMs = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
	}
	if summary.Errors == nil {
		summary.Errors = []models.RunError{}
	}

	return summary
}
