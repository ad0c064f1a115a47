// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/funnelsync/internal/models"
)

var mapperNow = time.Date(2024, 2, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))

func TestFieldMapper_MapFullRecord(t *testing.T) {
	t.Parallel()

	raw := `{
		"id": 100,
		"title": "ACME - 20 seats",
		"value": "R$ 1.234,56",
		"columnId": 11,
		"status": "open",
		"userId": 7,
		"createDate": "2024-01-01T09:00:00Z",
		"updateDate": "2024-01-01 10:00:00",
		"lostDate": null,
		"fields": {"Origem": "Inbound", "Qualificacao": "Hot", "Orçamento": {"value": "Approved"}},
		"lead": {
			"id": 9,
			"name": "Jane Doe",
			"email": "jane@example.com",
			"phone": "+55 11 99999-0000",
			"company": {"id": 4, "name": "ACME"},
			"utms": [{"utm_source": "google", "utm_medium": "cpc", "utm_campaign": "q1"}, {"utm_source": "bing"}]
		},
		"archived": false
	}`

	var src models.SourceOpportunity
	if err := json.Unmarshal([]byte(raw), &src); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	opp, err := NewFieldMapper(nil).Map(&src, 4, mapperNow)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	if opp.ID != 100 {
		t.Errorf("ID: expected 100, got %d", opp.ID)
	}
	if opp.FunnelID != 4 {
		t.Errorf("FunnelID: expected 4, got %d", opp.FunnelID)
	}
	checkStringPtrEqual(t, "Title", opp.Title, "ACME - 20 seats")
	checkFloatEqual(t, "Value", opp.Value, 1234.56)
	checkStringPtrEqual(t, "Status", opp.Status, "open")
	checkInt64PtrEqual(t, "StageID", opp.StageID, 11)
	checkInt64PtrEqual(t, "UserID", opp.UserID, 7)
	checkTimePtrEqual(t, "CreateDate", opp.CreateDate, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	checkTimePtrEqual(t, "UpdateDate", opp.UpdateDate, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	checkTimePtrNil(t, "LostDate", opp.LostDate)
	checkTimePtrNil(t, "GainDate", opp.GainDate)

	checkStringPtrEqual(t, "Origin", opp.Origin, "Inbound")
	checkStringPtrEqual(t, "Qualification", opp.Qualification, "Hot")
	checkStringPtrEqual(t, "BudgetStatus", opp.BudgetStatus, "Approved")

	checkInt64PtrEqual(t, "LeadID", opp.LeadID, 9)
	checkStringPtrEqual(t, "LeadName", opp.LeadName, "Jane Doe")
	checkStringPtrEqual(t, "LeadEmail", opp.LeadEmail, "jane@example.com")
	checkStringPtrEqual(t, "LeadPhone", opp.LeadPhone, "+55 11 99999-0000")
	checkStringPtrEqual(t, "LeadCompany", opp.LeadCompany, "ACME")

	checkStringPtrEqual(t, "UTMSource", opp.UTMSource, "google")
	checkStringPtrEqual(t, "UTMMedium", opp.UTMMedium, "cpc")
	checkStringPtrEqual(t, "UTMCampaign", opp.UTMCampaign, "q1")
	checkStringPtrNil(t, "UTMTerm", opp.UTMTerm)
	checkStringPtrNil(t, "UTMContent", opp.UTMContent)

	if !opp.SyncedAt.Equal(mapperNow) || opp.SyncedAt.Location() != time.UTC {
		t.Errorf("SyncedAt: expected %v in UTC, got %v", mapperNow.UTC(), opp.SyncedAt)
	}
}

func TestFieldMapper_UTMObject(t *testing.T) {
	t.Parallel()

	src := &models.SourceOpportunity{
		ID:   1,
		Lead: json.RawMessage(`{"utms": {"source": "newsletter", "utm_term": "crm"}}`),
	}

	opp, err := NewFieldMapper(nil).Map(src, 1, mapperNow)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	checkStringPtrEqual(t, "UTMSource", opp.UTMSource, "newsletter")
	checkStringPtrEqual(t, "UTMTerm", opp.UTMTerm, "crm")
}

func TestFieldMapper_SparseRecordWritesNulls(t *testing.T) {
	t.Parallel()

	src := &models.SourceOpportunity{ID: 5, Value: json.RawMessage(`"n/a"`)}

	opp, err := NewFieldMapper(nil).Map(src, 2, mapperNow)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	checkFloatEqual(t, "Value", opp.Value, 0)
	checkStringPtrNil(t, "Title", opp.Title)
	checkStringPtrNil(t, "Origin", opp.Origin)
	checkStringPtrNil(t, "LeadName", opp.LeadName)
	checkTimePtrNil(t, "CreateDate", opp.CreateDate)
	if opp.StageID != nil || opp.UserID != nil || opp.LeadID != nil {
		t.Error("expected nil ids for a sparse record")
	}

	// Nullable columns must be present as explicit nulls on the wire.
	body, err := json.Marshal(opp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, col := range []string{"title", "origin", "lead_email", "utm_source", "update_date"} {
		v, ok := decoded[col]
		if !ok {
			t.Errorf("column %s missing from payload", col)
		} else if v != nil {
			t.Errorf("column %s: expected null, got %v", col, v)
		}
	}
}

func TestFieldMapper_CustomTable(t *testing.T) {
	t.Parallel()

	table, err := NewFieldTable(map[string][]string{FieldOrigin: {"Canal"}})
	if err != nil {
		t.Fatalf("NewFieldTable: %v", err)
	}
	src := &models.SourceOpportunity{ID: 3, Fields: json.RawMessage(`{"Canal": "Events", "Origem": "Inbound"}`)}

	opp, err := NewFieldMapper(table).Map(src, 1, mapperNow)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	checkStringPtrEqual(t, "Origin", opp.Origin, "Events")
}

func TestFieldMapper_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  *models.SourceOpportunity
	}{
		{"nil record", nil},
		{"zero id", &models.SourceOpportunity{ID: 0}},
		{"negative id", &models.SourceOpportunity{ID: -4}},
		{"fields is array", &models.SourceOpportunity{ID: 1, Fields: json.RawMessage(`["Origem"]`)}},
		{"fields is string", &models.SourceOpportunity{ID: 1, Fields: json.RawMessage(`"Origem"`)}},
		{"lead is number", &models.SourceOpportunity{ID: 1, Lead: json.RawMessage(`42`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewFieldMapper(nil).Map(tt.src, 1, mapperNow)
			if !errors.Is(err, ErrMapping) {
				t.Errorf("expected ErrMapping, got %v", err)
			}
		})
	}
}

func TestFieldMapper_NullPayloadsAreNotErrors(t *testing.T) {
	t.Parallel()

	src := &models.SourceOpportunity{ID: 1, Fields: json.RawMessage(`null`), Lead: json.RawMessage(`null`)}
	if _, err := NewFieldMapper(nil).Map(src, 1, mapperNow); err != nil {
		t.Errorf("expected no error for null payloads, got %v", err)
	}
}
