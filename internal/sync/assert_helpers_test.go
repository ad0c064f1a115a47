// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"math"
	"testing"
	"time"

	"github.com/tomtom215/funnelsync/internal/models"
)

// Assertion helpers share the "check" prefix. t.Helper() keeps failure
// lines pointing at the caller.

func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}

func checkIntEqual(t *testing.T, fieldName string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, got)
	}
}

func checkFloatEqual(t *testing.T, fieldName string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s: expected %v, got %v", fieldName, want, got)
	}
}

func checkStringPtrNil(t *testing.T, fieldName string, ptr *string) {
	t.Helper()
	if ptr != nil {
		t.Errorf("%s should be nil, got %q", fieldName, *ptr)
	}
}

func checkStringPtrEqual(t *testing.T, fieldName string, ptr *string, want string) {
	t.Helper()
	if ptr == nil {
		t.Errorf("%s should not be nil, expected %q", fieldName, want)
		return
	}
	if *ptr != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, *ptr)
	}
}

func checkInt64PtrEqual(t *testing.T, fieldName string, ptr *int64, want int64) {
	t.Helper()
	if ptr == nil {
		t.Errorf("%s should not be nil, expected %d", fieldName, want)
		return
	}
	if *ptr != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, *ptr)
	}
}

func checkTimePtrNil(t *testing.T, fieldName string, ptr *time.Time) {
	t.Helper()
	if ptr != nil {
		t.Errorf("%s should be nil, got %v", fieldName, *ptr)
	}
}

func checkTimePtrEqual(t *testing.T, fieldName string, ptr *time.Time, want time.Time) {
	t.Helper()
	if ptr == nil {
		t.Errorf("%s should not be nil, expected %v", fieldName, want)
		return
	}
	if !ptr.Equal(want) {
		t.Errorf("%s: expected %v, got %v", fieldName, want, *ptr)
	}
}

// checkCounters compares the record counters of a stage, ignoring Pages,
// FunnelID and Aborted.
func checkCounters(t *testing.T, label string, got, want models.StageCounters) {
	t.Helper()
	checkIntEqual(t, label+".Found", got.Found, want.Found)
	checkIntEqual(t, label+".Filtered", got.Filtered, want.Filtered)
	checkIntEqual(t, label+".Inserted", got.Inserted, want.Inserted)
	checkIntEqual(t, label+".Updated", got.Updated, want.Updated)
	checkIntEqual(t, label+".Skipped", got.Skipped, want.Skipped)
	checkIntEqual(t, label+".Errors", got.Errors, want.Errors)
}

// checkCounterInvariant verifies every found record landed in exactly one bucket.
func checkCounterInvariant(t *testing.T, label string, c models.StageCounters) {
	t.Helper()
	sum := c.Filtered + c.Inserted + c.Updated + c.Skipped + c.Errors
	if c.Found != sum {
		t.Errorf("%s: found=%d but filtered+inserted+updated+skipped+errors=%d", label, c.Found, sum)
	}
}
