// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package models

// StageDescriptor names one funnel and the ordered stage (column) ids that
// belong to it. Descriptors come from configuration and are never discovered
// from the CRM, so funnel membership of a stage is never inferred from its id.
type StageDescriptor struct {
	FunnelID int64   `json:"funnel_id" koanf:"funnel_id" validate:"gt=0"`
	Label    string  `json:"label" koanf:"label"`
	StageIDs []int64 `json:"stage_ids" koanf:"stage_ids" validate:"min=1,dive,gt=0"`
}

// FunnelForStage returns the funnel that owns stageID, or 0 when no
// descriptor claims it.
func FunnelForStage(descriptors []StageDescriptor, stageID int64) int64 {
	for i := range descriptors {
		for _, id := range descriptors[i].StageIDs {
			if id == stageID {
				return descriptors[i].FunnelID
			}
		}
	}
	return 0
}
