// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"github.com/tomtom215/funnelsync/internal/models"
)

// Decision is the per-record outcome of change detection.
type Decision int

const (
	DecisionSkip Decision = iota
	DecisionInsert
	DecisionUpdate
)

func (d Decision) String() string {
	switch d {
	case DecisionInsert:
		return "insert"
	case DecisionUpdate:
		return "update"
	default:
		return "skip"
	}
}

// Decide compares a source record with the destination row (nil when absent).
//
//   - no destination row: insert
//   - source updateDate missing or unparseable: skip
//   - destination update_date null: update
//   - destination update_date unparseable: skip
//   - otherwise update only when the source is strictly newer
//
// Equal timestamps skip, which makes repeated runs idempotent and never
// lets an older source overwrite a newer row.
func Decide(src *models.SourceOpportunity, existing *models.ExistingOpportunity) Decision {
	if existing == nil {
		return DecisionInsert
	}

	srcUpdated := parseDate(src.UpdateDate)
	if srcUpdated == nil {
		return DecisionSkip
	}

	if existing.UpdateDate == nil {
		return DecisionUpdate
	}
	dstUpdated := parseDateString(*existing.UpdateDate)
	if dstUpdated == nil {
		return DecisionSkip
	}

	if srcUpdated.After(*dstUpdated) {
		return DecisionUpdate
	}
	return DecisionSkip
}
