// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"strings"
	"testing"
)

func TestFieldTable_ResolveDefaults(t *testing.T) {
	t.Parallel()

	ft := DefaultFieldTable()

	tests := []struct {
		name   string
		fields map[string]interface{}
		field  string
		want   string
	}{
		{
			name:   "first variant",
			fields: map[string]interface{}{"Origem": "Inbound"},
			field:  FieldOrigin,
			want:   "Inbound",
		},
		{
			name:   "later variant",
			fields: map[string]interface{}{"origin": "Referral"},
			field:  FieldOrigin,
			want:   "Referral",
		},
		{
			name:   "empty earlier variant is skipped",
			fields: map[string]interface{}{"Origem": "  ", "origin": "Ads"},
			field:  FieldOrigin,
			want:   "Ads",
		},
		{
			name:   "earlier variant wins",
			fields: map[string]interface{}{"Qualification": "B", "Qualificação": "A"},
			field:  FieldQualification,
			want:   "A",
		},
		{
			name:   "choice object",
			fields: map[string]interface{}{"Status do Orçamento": map[string]interface{}{"id": 3.0, "value": "Approved"}},
			field:  FieldBudgetStatus,
			want:   "Approved",
		},
		{
			name:   "numeric value",
			fields: map[string]interface{}{"budget_status": 2.0},
			field:  FieldBudgetStatus,
			want:   "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			checkStringPtrEqual(t, tt.field, ft.Resolve(tt.fields, tt.field), tt.want)
		})
	}
}

func TestFieldTable_ResolveAbsent(t *testing.T) {
	t.Parallel()

	ft := DefaultFieldTable()

	checkStringPtrNil(t, "nil fields", ft.Resolve(nil, FieldOrigin))
	checkStringPtrNil(t, "no match", ft.Resolve(map[string]interface{}{"ORIGEM": "x"}, FieldOrigin))
	checkStringPtrNil(t, "null value", ft.Resolve(map[string]interface{}{"Origem": nil}, FieldOrigin))
	checkStringPtrNil(t, "unknown field", ft.Resolve(map[string]interface{}{"Origem": "x"}, "unknown"))
}

func TestNewFieldTable_Overrides(t *testing.T) {
	t.Parallel()

	ft, err := NewFieldTable(map[string][]string{
		FieldOrigin: {"Lead Source"},
	})
	if err != nil {
		t.Fatalf("NewFieldTable: %v", err)
	}

	fields := map[string]interface{}{"Lead Source": "Partner", "Origem": "Inbound"}
	checkStringPtrEqual(t, "override", ft.Resolve(fields, FieldOrigin), "Partner")

	// Other columns keep their defaults.
	checkStringPtrEqual(t, "default kept",
		ft.Resolve(map[string]interface{}{"Qualificacao": "Hot"}, FieldQualification), "Hot")

	// The defaults themselves are untouched.
	checkStringPtrEqual(t, "fresh default",
		DefaultFieldTable().Resolve(fields, FieldOrigin), "Inbound")
}

func TestNewFieldTable_Rejects(t *testing.T) {
	t.Parallel()

	if _, err := NewFieldTable(map[string][]string{"orign": {"x"}}); err == nil ||
		!strings.Contains(err.Error(), "unknown destination field") {
		t.Errorf("expected unknown field error, got %v", err)
	}
	if _, err := NewFieldTable(map[string][]string{FieldOrigin: {}}); err == nil {
		t.Error("expected error for empty variant list")
	}
}

func TestFieldTable_VariantsIsCopy(t *testing.T) {
	t.Parallel()

	ft := DefaultFieldTable()
	v := ft.Variants(FieldOrigin)
	v[0] = "mutated"
	if ft.Variants(FieldOrigin)[0] == "mutated" {
		t.Error("Variants must return a copy")
	}
}
