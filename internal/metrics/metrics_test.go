// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDecision(t *testing.T) {
	before := testutil.ToFloat64(RecordsTotal.WithLabelValues("9911", "insert"))

	RecordDecision(9911, "insert")
	RecordDecision(9911, "insert")

	after := testutil.ToFloat64(RecordsTotal.WithLabelValues("9911", "insert"))
	if after-before != 2 {
		t.Errorf("insert counter delta = %v, want 2", after-before)
	}
}

func TestRecordRun_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		errors    int
		cancelled bool
		outcome   string
	}{
		{"clean run", 0, false, "success"},
		{"run with errors", 3, false, "errors"},
		{"cancelled run", 0, true, "cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordRun("dry_run", 2*time.Second, tt.errors, tt.cancelled)
			count := testutil.CollectAndCount(RunDuration, "funnelsync_run_duration_seconds")
			if count == 0 {
				t.Fatal("expected run duration series to be collected")
			}
		})
	}

	if testutil.ToFloat64(LastSuccess) == 0 {
		t.Error("LastSuccess should be set after a clean run")
	}
}

func TestRecordErrorAndPage(t *testing.T) {
	errBefore := testutil.ToFloat64(ErrorsTotal.WithLabelValues("lookup"))
	pageBefore := testutil.ToFloat64(PagesFetched)

	RecordError("lookup")
	RecordPage()

	if got := testutil.ToFloat64(ErrorsTotal.WithLabelValues("lookup")) - errBefore; got != 1 {
		t.Errorf("lookup error delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(PagesFetched) - pageBefore; got != 1 {
		t.Errorf("pages delta = %v, want 1", got)
	}
}

func TestSetSchedulerState(t *testing.T) {
	SetSchedulerState(SchedulerRunning)
	if got := testutil.ToFloat64(SchedulerState); got != SchedulerRunning {
		t.Errorf("SchedulerState = %v, want %d", got, SchedulerRunning)
	}
	SetSchedulerState(SchedulerIdle)
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/sync/run", "409"))
	RecordAPIRequest("POST", "/api/v1/sync/run", 409)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/sync/run", "409")) - before; got != 1 {
		t.Errorf("api request delta = %v, want 1", got)
	}
}
