// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Opportunity status values as reported by the CRM.
const (
	StatusOpen = "open"
	StatusGain = "gain"
	StatusLost = "lost"
)

// SourceOpportunity is one sales opportunity as served by the CRM
// opportunities endpoint. The engine only ever reads it.
//
// Value, Fields and Lead are kept raw because the CRM is loose about their
// shape: Value arrives as a number or as a locale-formatted string, Fields is
// a free-form custom-field object, and Lead.utms may be an object or an array.
//
// Example payload:
//
//	{
//	  "id": 100,
//	  "title": "ACME - 20 seats",
//	  "value": "1.234,56",
//	  "columnId": 11,
//	  "status": "open",
//	  "userId": 7,
//	  "createDate": "2024-01-01T09:00:00Z",
//	  "updateDate": "2024-01-01T10:00:00Z",
//	  "fields": {"Origem": "Inbound"},
//	  "lead": {"id": 9, "name": "Jane", "utms": [{"utm_source": "google"}]},
//	  "archived": false
//	}
type SourceOpportunity struct {
	ID         int64           `json:"id"`
	Title      string          `json:"title"`
	Value      json.RawMessage `json:"value,omitempty"`
	ColumnID   int64           `json:"columnId"`
	Status     string          `json:"status"`
	UserID     *int64          `json:"userId,omitempty"`
	CreateDate json.RawMessage `json:"createDate,omitempty"`
	UpdateDate json.RawMessage `json:"updateDate,omitempty"`
	LostDate   json.RawMessage `json:"lostDate,omitempty"`
	GainDate   json.RawMessage `json:"gainDate,omitempty"`
	Fields     json.RawMessage `json:"fields,omitempty"`
	Lead       json.RawMessage `json:"lead,omitempty"`
	Archived   bool            `json:"archived"`
}

// Opportunity is the flattened reporting-store row keyed by the CRM id.
//
// Nullable columns are pointers without omitempty so that an update writes an
// explicit null when the source no longer carries the value.
type Opportunity struct {
	ID            int64      `json:"id"`
	Title         *string    `json:"title"`
	Value         float64    `json:"value"`
	Status        *string    `json:"status"`
	StageID       *int64     `json:"stage_id"`
	FunnelID      int64      `json:"funnel_id"`
	UserID        *int64     `json:"user_id"`
	CreateDate    *time.Time `json:"create_date"`
	UpdateDate    *time.Time `json:"update_date"`
	LostDate      *time.Time `json:"lost_date"`
	GainDate      *time.Time `json:"gain_date"`
	Archived      bool       `json:"archived"`
	Origin        *string    `json:"origin"`
	Qualification *string    `json:"qualification"`
	BudgetStatus  *string    `json:"budget_status"`
	LeadID        *int64     `json:"lead_id"`
	LeadName      *string    `json:"lead_name"`
	LeadEmail     *string    `json:"lead_email"`
	LeadPhone     *string    `json:"lead_phone"`
	LeadCompany   *string    `json:"lead_company"`
	UTMSource     *string    `json:"utm_source"`
	UTMMedium     *string    `json:"utm_medium"`
	UTMCampaign   *string    `json:"utm_campaign"`
	UTMTerm       *string    `json:"utm_term"`
	UTMContent    *string    `json:"utm_content"`
	SyncedAt      time.Time  `json:"synced_at"`
}

// ExistingOpportunity is the projection returned by the destination
// existence check (select=id,update_date). UpdateDate is kept as the raw
// stored text so the change detector decides how to read it.
type ExistingOpportunity struct {
	ID         int64   `json:"id"`
	UpdateDate *string `json:"update_date"`
}
