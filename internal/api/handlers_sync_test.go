// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/funnelsync/internal/models"
	"github.com/tomtom215/funnelsync/internal/scheduler"
)

// mockSyncController is a test double for SyncController.
type mockSyncController struct {
	mu         sync.Mutex
	status     scheduler.Status
	startCtx   context.Context
	stopErr    error
	triggerErr error
	triggered  []models.Mode
}

func newMockSyncController() *mockSyncController {
	return &mockSyncController{status: scheduler.Status{State: scheduler.StateIdle}}
}

func (m *mockSyncController) Status() scheduler.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockSyncController) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCtx = ctx
	m.status.State = scheduler.StateArmed
	return nil
}

func (m *mockSyncController) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	m.status.State = scheduler.StateIdle
	return nil
}

func (m *mockSyncController) Trigger(_ context.Context, mode models.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.triggerErr != nil {
		return m.triggerErr
	}
	m.triggered = append(m.triggered, mode)
	return nil
}

// mockRunHistory is a test double for RunHistory.
type mockRunHistory struct {
	runs      []models.RunSummary
	err       error
	pingErr   error
	lastLimit int
}

func (m *mockRunHistory) ListRuns(_ context.Context, limit int) ([]models.RunSummary, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockRunHistory) Ping(context.Context) error {
	return m.pingErr
}

// apiEnvelope decodes the response envelope with raw data.
type apiEnvelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
	Meta   models.Metadata  `json:"metadata"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func checkStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}

func checkErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if env.Status != "error" {
		t.Errorf("envelope status = %q, want error", env.Status)
	}
	if env.Error == nil || env.Error.Code != want {
		t.Errorf("error = %+v, want code %s", env.Error, want)
	}
}

func TestSyncStatus(t *testing.T) {
	t.Parallel()

	next := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	ctrl := newMockSyncController()
	ctrl.status = scheduler.Status{State: scheduler.StateArmed, NextRunTime: &next}
	h := NewHandler(context.Background(), ctrl, nil)

	rec := httptest.NewRecorder()
	h.SyncStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil))
	checkStatus(t, rec, http.StatusOK)

	env := decodeEnvelope(t, rec)
	var st scheduler.Status
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != scheduler.StateArmed {
		t.Errorf("state = %q, want armed", st.State)
	}
	if st.NextRunTime == nil || !st.NextRunTime.Equal(next) {
		t.Errorf("next_run_time = %v, want %v", st.NextRunTime, next)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestSyncStart_UsesBaseContext(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}
	base := context.WithValue(context.Background(), ctxKey{}, "base")
	ctrl := newMockSyncController()
	h := NewHandler(base, ctrl, nil)

	rec := httptest.NewRecorder()
	h.SyncStart(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/start", nil))
	checkStatus(t, rec, http.StatusOK)

	if ctrl.startCtx == nil || ctrl.startCtx.Value(ctxKey{}) != "base" {
		t.Error("Start was not called with the handler base context")
	}
	if ctrl.Status().State != scheduler.StateArmed {
		t.Errorf("state = %q, want armed", ctrl.Status().State)
	}
}

func TestSyncStop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stopErr  error
		wantCode int
		wantErr  string
	}{
		{"armed", nil, http.StatusOK, ""},
		{"not running", scheduler.ErrNotRunning, http.StatusConflict, "SCHEDULER_NOT_RUNNING"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "SCHEDULER_STOP_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := newMockSyncController()
			ctrl.stopErr = tt.stopErr
			h := NewHandler(context.Background(), ctrl, nil)

			rec := httptest.NewRecorder()
			h.SyncStop(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/stop", nil))
			checkStatus(t, rec, tt.wantCode)
			if tt.wantErr != "" {
				checkErrorCode(t, rec, tt.wantErr)
			}
		})
	}
}

func TestSyncRun(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
		wantMode models.Mode
	}{
		{"empty body uses scheduled mode", "", http.StatusAccepted, "", models.Mode{}},
		{"empty object uses scheduled mode", "{}", http.StatusAccepted, "", models.Mode{}},
		{"full", `{"mode":"full"}`, http.StatusAccepted, "", models.FullMode()},
		{"dry run", `{"mode":"dry_run"}`, http.StatusAccepted, "", models.DryRunMode()},
		{"incremental open ended", `{"mode":"incremental","since":"2026-03-01T00:00:00Z"}`,
			http.StatusAccepted, "", models.IncrementalSince(since)},
		{"incremental bounded", `{"mode":"incremental","since":"2026-03-01T00:00:00Z","until":"2026-03-02T00:00:00Z"}`,
			http.StatusAccepted, "", models.Mode{Kind: models.ModeIncremental, Since: since, Until: until}},
		{"incremental offset converted to UTC", `{"mode":"incremental","since":"2026-02-28T21:00:00-03:00"}`,
			http.StatusAccepted, "", models.IncrementalSince(since)},
		{"unknown mode", `{"mode":"turbo"}`, http.StatusBadRequest, "VALIDATION_ERROR", models.Mode{}},
		{"bad since", `{"mode":"incremental","since":"yesterday"}`, http.StatusBadRequest, "VALIDATION_ERROR", models.Mode{}},
		{"incremental without since", `{"mode":"incremental"}`, http.StatusBadRequest, "VALIDATION_ERROR", models.Mode{}},
		{"until before since", `{"mode":"incremental","since":"2026-03-02T00:00:00Z","until":"2026-03-01T00:00:00Z"}`,
			http.StatusBadRequest, "VALIDATION_ERROR", models.Mode{}},
		{"malformed json", `{"mode":`, http.StatusBadRequest, "VALIDATION_ERROR", models.Mode{}},
		{"not an object", `["full"]`, http.StatusBadRequest, "VALIDATION_ERROR", models.Mode{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := newMockSyncController()
			h := NewHandler(context.Background(), ctrl, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.SyncRun(rec, req)
			checkStatus(t, rec, tt.wantCode)

			if tt.wantErr != "" {
				checkErrorCode(t, rec, tt.wantErr)
				if len(ctrl.triggered) != 0 {
					t.Errorf("Trigger called %d times on a rejected request", len(ctrl.triggered))
				}
				return
			}

			if len(ctrl.triggered) != 1 {
				t.Fatalf("Trigger called %d times, want 1", len(ctrl.triggered))
			}
			got := ctrl.triggered[0]
			if got.Kind != tt.wantMode.Kind || !got.Since.Equal(tt.wantMode.Since) || !got.Until.Equal(tt.wantMode.Until) {
				t.Errorf("mode = %+v, want %+v", got, tt.wantMode)
			}
		})
	}
}

func TestSyncRun_AlreadyRunning(t *testing.T) {
	t.Parallel()

	ctrl := newMockSyncController()
	ctrl.triggerErr = scheduler.ErrAlreadyRunning
	h := NewHandler(context.Background(), ctrl, nil)

	rec := httptest.NewRecorder()
	h.SyncRun(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", bytes.NewBufferString(`{"mode":"full"}`)))
	checkStatus(t, rec, http.StatusConflict)
	checkErrorCode(t, rec, "SYNC_IN_PROGRESS")
}

func TestSyncRun_ShuttingDown(t *testing.T) {
	t.Parallel()

	ctrl := newMockSyncController()
	ctrl.triggerErr = scheduler.ErrShuttingDown
	h := NewHandler(context.Background(), ctrl, nil)

	rec := httptest.NewRecorder()
	h.SyncRun(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", bytes.NewBufferString(`{"mode":"full"}`)))
	checkStatus(t, rec, http.StatusServiceUnavailable)
	checkErrorCode(t, rec, "SHUTTING_DOWN")
}

func TestSyncRun_AcceptedBody(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	h := NewHandler(context.Background(), newMockSyncController(), nil)
	h.now = func() time.Time { return fixed }

	rec := httptest.NewRecorder()
	h.SyncRun(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", strings.NewReader(`{"mode":"dry_run"}`)))
	checkStatus(t, rec, http.StatusAccepted)

	var accepted models.RunAccepted
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &accepted); err != nil {
		t.Fatalf("decode accepted: %v", err)
	}
	if accepted.Mode.Kind != models.ModeDryRun {
		t.Errorf("mode = %q, want dry_run", accepted.Mode.Kind)
	}
	if !accepted.StartedAt.Equal(fixed) {
		t.Errorf("started_at = %v, want %v", accepted.StartedAt, fixed)
	}
}

func TestSyncRuns(t *testing.T) {
	t.Parallel()

	history := &mockRunHistory{runs: []models.RunSummary{
		{RunID: "run-2", Errors: []models.RunError{}},
		{RunID: "run-1", Errors: []models.RunError{}},
	}}

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
		wantRuns  int
	}{
		{"default limit", "", http.StatusOK, 20, 2},
		{"explicit limit", "?limit=1", http.StatusOK, 1, 1},
		{"zero rejected", "?limit=0", http.StatusBadRequest, 0, 0},
		{"above max rejected", "?limit=501", http.StatusBadRequest, 0, 0},
		{"not a number", "?limit=abc", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(context.Background(), newMockSyncController(), history)
			history.lastLimit = 0

			rec := httptest.NewRecorder()
			h.SyncRuns(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/runs"+tt.query, nil))
			checkStatus(t, rec, tt.wantCode)
			if tt.wantCode != http.StatusOK {
				checkErrorCode(t, rec, "VALIDATION_ERROR")
				return
			}

			if history.lastLimit != tt.wantLimit {
				t.Errorf("ListRuns limit = %d, want %d", history.lastLimit, tt.wantLimit)
			}
			var runs []models.RunSummary
			if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &runs); err != nil {
				t.Fatalf("decode runs: %v", err)
			}
			if len(runs) != tt.wantRuns {
				t.Errorf("got %d runs, want %d", len(runs), tt.wantRuns)
			}
		})
	}
}

func TestSyncRuns_HistoryUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		history RunHistory
	}{
		{"disabled", nil},
		{"failing", &mockRunHistory{err: errors.New("database is locked")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHandler(context.Background(), newMockSyncController(), tt.history)
			rec := httptest.NewRecorder()
			h.SyncRuns(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/runs", nil))
			checkStatus(t, rec, http.StatusServiceUnavailable)
			checkErrorCode(t, rec, "HISTORY_UNAVAILABLE")
		})
	}
}
