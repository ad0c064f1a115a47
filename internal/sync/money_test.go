// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestParseMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"json number", `1234.56`, 1234.56},
		{"json integer", `1500`, 1500},
		{"json number rounds", `10.456`, 10.46},
		{"brazilian format", `"1.234,56"`, 1234.56},
		{"us format", `"1,234.56"`, 1234.56},
		{"currency prefix", `"R$ 1.234,56"`, 1234.56},
		{"single comma decimal", `"1234,5"`, 1234.5},
		{"dot thousands", `"1.234"`, 1234},
		{"dot decimal", `"12.5"`, 12.5},
		{"comma thousands", `"1,234"`, 1234},
		{"many dot groups", `"1.234.567"`, 1234567},
		{"many comma groups", `"1,234,567.89"`, 1234567.89},
		{"leading separator", `",50"`, 0.5},
		{"negative", `"-10,00"`, -10},
		{"negative with currency", `"R$ -1.000,25"`, -1000.25},
		{"plain string number", `"99"`, 99},
		{"zero dot three decimals", `"0.500"`, 0.5},
		{"zero comma three decimals", `"0,500"`, 0.5},
		{"long leading group dot decimal", `"1234.567"`, 1234.57},
		{"comma four decimals", `"1,2345"`, 1.23},
		{"exponent is unparseable", `"1e3"`, 0},
		{"large exponent is unparseable", `"1e400"`, 0},
		{"trailing letters", `"12abc"`, 0},
		{"garbage", `"abc"`, 0},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
		{"absent", ``, 0},
		{"object", `{"amount": 5}`, 0},
		{"bool", `true`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseMoney(json.RawMessage(tt.raw))
			checkFloatEqual(t, tt.raw, got, tt.want)
		})
	}
}
