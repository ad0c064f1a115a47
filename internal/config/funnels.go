// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/funnelsync/internal/models"
)

// ParseFunnelSpec parses the compact SYNC_FUNNELS form:
//
//	"4:Inbound:11,12,13;5:Outbound:21,22"
//
// Entries are separated by ';', fields by ':'. The label may be empty
// ("4::11,12"). Stage order is preserved.
func ParseFunnelSpec(spec string) ([]models.StageDescriptor, error) {
	var funnels []models.StageDescriptor

	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("funnel entry %q must have the form id:label:stage,stage", entry)
		}

		funnelID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("funnel entry %q: invalid funnel id: %w", entry, err)
		}

		var stageIDs []int64
		for _, raw := range strings.Split(parts[2], ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("funnel entry %q: invalid stage id %q: %w", entry, raw, err)
			}
			stageIDs = append(stageIDs, id)
		}

		funnels = append(funnels, models.StageDescriptor{
			FunnelID: funnelID,
			Label:    strings.TrimSpace(parts[1]),
			StageIDs: stageIDs,
		})
	}

	return funnels, nil
}
