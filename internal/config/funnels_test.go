// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package config

import (
	"reflect"
	"testing"

	"github.com/tomtom215/funnelsync/internal/models"
)

func TestParseFunnelSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		want    []models.StageDescriptor
		wantErr bool
	}{
		{
			name: "two funnels",
			spec: "4:Inbound:11,12,13;5:Outbound:21,22",
			want: []models.StageDescriptor{
				{FunnelID: 4, Label: "Inbound", StageIDs: []int64{11, 12, 13}},
				{FunnelID: 5, Label: "Outbound", StageIDs: []int64{21, 22}},
			},
		},
		{
			name: "whitespace and trailing separator",
			spec: " 4 : Inbound : 11, 12 ; ",
			want: []models.StageDescriptor{
				{FunnelID: 4, Label: "Inbound", StageIDs: []int64{11, 12}},
			},
		},
		{
			name: "empty label",
			spec: "7::70",
			want: []models.StageDescriptor{
				{FunnelID: 7, Label: "", StageIDs: []int64{70}},
			},
		},
		{name: "missing stage list", spec: "4:Inbound", wantErr: true},
		{name: "non numeric funnel", spec: "x:Inbound:1", wantErr: true},
		{name: "non numeric stage", spec: "4:Inbound:1,b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFunnelSpec(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFunnelSpec() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseFunnelSpec() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
