// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// histogramSample reads the sample count and sum of one histogram series.
func histogramSample(t *testing.T, mode, outcome string) (count uint64, sum float64) {
	t.Helper()

	metric, ok := RunDuration.WithLabelValues(mode, outcome).(prometheus.Metric)
	if !ok {
		t.Fatal("histogram observer does not implement prometheus.Metric")
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestRecordRun_HistogramLabels(t *testing.T) {
	countBefore, sumBefore := histogramSample(t, "incremental", "errors")

	RecordRun("incremental", 90*time.Second, 2, false)

	count, sum := histogramSample(t, "incremental", "errors")
	if count-countBefore != 1 {
		t.Errorf("sample count delta = %d, want 1", count-countBefore)
	}
	if got := sum - sumBefore; got != 90 {
		t.Errorf("sample sum delta = %v, want 90", got)
	}

	// Cancellation wins over errors.
	cancelledBefore, _ := histogramSample(t, "incremental", "cancelled")
	RecordRun("incremental", time.Second, 5, true)
	cancelled, _ := histogramSample(t, "incremental", "cancelled")
	if cancelled-cancelledBefore != 1 {
		t.Errorf("cancelled sample count delta = %d, want 1", cancelled-cancelledBefore)
	}
}
