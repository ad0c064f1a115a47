// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"fmt"
	"sort"
	"strings"
)

// Destination columns fed from CRM custom fields.
const (
	FieldOrigin        = "origin"
	FieldQualification = "qualification"
	FieldBudgetStatus  = "budget_status"
)

// defaultFieldVariants lists, per destination column, the custom-field keys
// seen in CRM accounts. Matching is exact and in order.
var defaultFieldVariants = map[string][]string{
	FieldOrigin: {
		"Origem",
		"origem",
		"Origem do Lead",
		"Origem do lead",
		"origin",
		"Origin",
	},
	FieldQualification: {
		"Qualificação",
		"qualificação",
		"Qualificacao",
		"qualificacao",
		"Qualification",
		"qualification",
	},
	FieldBudgetStatus: {
		"Status do Orçamento",
		"Status do orçamento",
		"Status Orçamento",
		"Orçamento",
		"orcamento",
		"budget_status",
		"Budget Status",
	},
}

// FieldTable maps destination columns to ordered source custom-field key
// variants. It is immutable after construction.
type FieldTable struct {
	variants map[string][]string
}

// DefaultFieldTable returns the built-in table.
func DefaultFieldTable() *FieldTable {
	ft, _ := NewFieldTable(nil) //nolint:errcheck // nil overrides cannot fail
	return ft
}

// NewFieldTable returns the default table with overrides applied. An
// override replaces the whole variant list of its column. Unknown columns
// and empty variant lists are rejected so a typo in configuration is caught
// at startup rather than silently writing nulls.
func NewFieldTable(overrides map[string][]string) (*FieldTable, error) {
	variants := make(map[string][]string, len(defaultFieldVariants))
	for field, keys := range defaultFieldVariants {
		variants[field] = append([]string(nil), keys...)
	}

	for field, keys := range overrides {
		if _, ok := defaultFieldVariants[field]; !ok {
			return nil, fmt.Errorf("field table: unknown destination field %q (known: %s)",
				field, strings.Join(knownFields(), ", "))
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("field table: %q needs at least one source key", field)
		}
		variants[field] = append([]string(nil), keys...)
	}

	return &FieldTable{variants: variants}, nil
}

// Variants returns the source keys tried for field, in order.
func (ft *FieldTable) Variants(field string) []string {
	return append([]string(nil), ft.variants[field]...)
}

// Resolve returns the first non-empty value among field's variants in the
// decoded custom-field object, or nil when none is present.
func (ft *FieldTable) Resolve(fields map[string]interface{}, field string) *string {
	if len(fields) == 0 {
		return nil
	}
	for _, key := range ft.variants[field] {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if s := customFieldText(v); s != "" {
			return &s
		}
	}
	return nil
}

// customFieldText unwraps CRM custom-field values, which are scalars or
// single-choice objects such as {"id": 3, "value": "Inbound"}.
func customFieldText(v interface{}) string {
	if obj, ok := v.(map[string]interface{}); ok {
		for _, key := range []string{"value", "label", "name"} {
			if s := scalarString(obj[key]); s != "" {
				return s
			}
		}
		return ""
	}
	if list, ok := v.([]interface{}); ok && len(list) > 0 {
		return customFieldText(list[0])
	}
	return scalarString(v)
}

func knownFields() []string {
	fields := make([]string, 0, len(defaultFieldVariants))
	for field := range defaultFieldVariants {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
