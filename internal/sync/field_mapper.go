// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/funnelsync/internal/models"
)

// Lead keys read by the mapper.
var (
	leadNameKeys    = []string{"name", "nome"}
	leadEmailKeys   = []string{"email", "mail"}
	leadPhoneKeys   = []string{"phone", "telefone", "cellphone", "mobile"}
	leadCompanyKeys = []string{"company", "empresa", "companyName"}
)

// UTM columns and the lead keys accepted for each.
var utmKeys = map[string][]string{
	"source":   {"utm_source", "source"},
	"medium":   {"utm_medium", "medium"},
	"campaign": {"utm_campaign", "campaign"},
	"term":     {"utm_term", "term"},
	"content":  {"utm_content", "content"},
}

// FieldMapper flattens CRM opportunities into reporting rows. It holds no
// mutable state and is safe for concurrent use.
type FieldMapper struct {
	table *FieldTable
}

// NewFieldMapper creates a mapper resolving custom fields through table.
// A nil table uses DefaultFieldTable.
func NewFieldMapper(table *FieldTable) *FieldMapper {
	if table == nil {
		table = DefaultFieldTable()
	}
	return &FieldMapper{table: table}
}

// Map converts src into the destination row. funnelID comes from the stage
// descriptor being processed and now becomes synced_at.
//
// Only structurally unusable records fail, with an error wrapping
// ErrMapping: a non-positive id, or lead/fields payloads that are present
// but not JSON objects. Unparseable values and dates map to 0 and null.
func (m *FieldMapper) Map(src *models.SourceOpportunity, funnelID int64, now time.Time) (*models.Opportunity, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMapping)
	}
	if src.ID <= 0 {
		return nil, fmt.Errorf("%w: invalid id %d", ErrMapping, src.ID)
	}

	fields, err := decodeObject(src.Fields)
	if err != nil {
		return nil, fmt.Errorf("%w: record %d: fields: %v", ErrMapping, src.ID, err)
	}
	lead, err := decodeObject(src.Lead)
	if err != nil {
		return nil, fmt.Errorf("%w: record %d: lead: %v", ErrMapping, src.ID, err)
	}

	opp := &models.Opportunity{
		ID:         src.ID,
		Title:      stringToPtr(src.Title),
		Value:      parseMoney(src.Value),
		Status:     stringToPtr(src.Status),
		StageID:    int64ToPtr(src.ColumnID),
		FunnelID:   funnelID,
		CreateDate: parseDate(src.CreateDate),
		UpdateDate: parseDate(src.UpdateDate),
		LostDate:   parseDate(src.LostDate),
		GainDate:   parseDate(src.GainDate),
		Archived:   src.Archived,
		SyncedAt:   now.UTC(),
	}
	if src.UserID != nil {
		opp.UserID = int64ToPtr(*src.UserID)
	}

	opp.Origin = m.table.Resolve(fields, FieldOrigin)
	opp.Qualification = m.table.Resolve(fields, FieldQualification)
	opp.BudgetStatus = m.table.Resolve(fields, FieldBudgetStatus)

	mapLeadFields(lead, opp)
	mapUTMFields(lead["utms"], opp)

	return opp, nil
}

// decodeObject decodes a raw JSON object. Absent and null payloads decode to
// nil without error; any other non-object payload is an error.
func decodeObject(raw json.RawMessage) (map[string]interface{}, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '{' {
		return nil, fmt.Errorf("expected object, got %.20s", raw)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func mapLeadFields(lead map[string]interface{}, opp *models.Opportunity) {
	if lead == nil {
		return
	}

	if id := scalarInt64(lead["id"]); id > 0 {
		opp.LeadID = &id
	}
	opp.LeadName = firstString(lead, leadNameKeys)
	opp.LeadEmail = firstString(lead, leadEmailKeys)
	opp.LeadPhone = firstString(lead, leadPhoneKeys)

	// company is either a name or {"id": .., "name": ..}
	for _, key := range leadCompanyKeys {
		v, ok := lead[key]
		if !ok {
			continue
		}
		if obj, ok := v.(map[string]interface{}); ok {
			v = obj["name"]
		}
		if s := stringToPtr(scalarString(v)); s != nil {
			opp.LeadCompany = s
			return
		}
	}
}

// mapUTMFields takes the first entry when utms is an array, else the object
// itself.
func mapUTMFields(utms interface{}, opp *models.Opportunity) {
	var entry map[string]interface{}
	switch v := utms.(type) {
	case []interface{}:
		if len(v) > 0 {
			entry, _ = v[0].(map[string]interface{})
		}
	case map[string]interface{}:
		entry = v
	}
	if entry == nil {
		return
	}

	opp.UTMSource = firstString(entry, utmKeys["source"])
	opp.UTMMedium = firstString(entry, utmKeys["medium"])
	opp.UTMCampaign = firstString(entry, utmKeys["campaign"])
	opp.UTMTerm = firstString(entry, utmKeys["term"])
	opp.UTMContent = firstString(entry, utmKeys["content"])
}

func firstString(obj map[string]interface{}, keys []string) *string {
	for _, key := range keys {
		if s := stringToPtr(scalarString(obj[key])); s != nil {
			return s
		}
	}
	return nil
}
