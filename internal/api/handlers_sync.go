// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/funnelsync/internal/logging"
	"github.com/tomtom215/funnelsync/internal/models"
	"github.com/tomtom215/funnelsync/internal/scheduler"
)

const maxRunRequestBytes = 4 << 10

// runsQuery is the validated query of GET /api/v1/sync/runs.
type runsQuery struct {
	Limit int `validate:"gte=1,lte=500"`
}

// SyncStatus returns the scheduler state, last and next run times, and the
// last run summary.
func (h *Handler) SyncStatus(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, h.sync.Status())
}

// SyncStart arms the scheduler. Starting an armed scheduler is a no-op.
func (h *Handler) SyncStart(w http.ResponseWriter, _ *http.Request) {
	if err := h.sync.Start(h.baseCtx); err != nil {
		respondError(w, http.StatusInternalServerError, "SCHEDULER_START_FAILED", "Failed to start scheduler", err)
		return
	}
	respondSuccess(w, http.StatusOK, h.sync.Status())
}

// SyncStop disarms the scheduler. A run in progress is not interrupted.
func (h *Handler) SyncStop(w http.ResponseWriter, _ *http.Request) {
	if err := h.sync.Stop(); err != nil {
		if errors.Is(err, scheduler.ErrNotRunning) {
			respondError(w, http.StatusConflict, "SCHEDULER_NOT_RUNNING", err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "SCHEDULER_STOP_FAILED", "Failed to stop scheduler", err)
		return
	}
	respondSuccess(w, http.StatusOK, h.sync.Status())
}

// SyncRun starts a forced run in the background and answers 202.
// An empty body runs the scheduled mode.
func (h *Handler) SyncRun(w http.ResponseWriter, r *http.Request) {
	var req models.RunRequest
	body := http.MaxBytesReader(w, r.Body, maxRunRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be a JSON object", nil)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	mode, err := modeFromRequest(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	if err := h.sync.Trigger(r.Context(), mode); err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, "SYNC_IN_PROGRESS", err.Error(), nil)
			return
		}
		if errors.Is(err, scheduler.ErrShuttingDown) {
			respondError(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "SYNC_START_FAILED", "Failed to start sync run", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("mode", string(mode.Kind)).Msg("Sync run triggered via API")
	respondSuccess(w, http.StatusAccepted, models.RunAccepted{
		Mode:      mode,
		StartedAt: h.now().UTC(),
	})
}

// modeFromRequest converts a validated request into a run mode. An empty
// mode yields the zero Mode, which the scheduler replaces with its own.
func modeFromRequest(req *models.RunRequest) (models.Mode, error) {
	if req.Mode == "" {
		return models.Mode{}, nil
	}

	kind, err := models.ParseModeKind(req.Mode)
	if err != nil {
		return models.Mode{}, err
	}
	if kind != models.ModeIncremental {
		return models.Mode{Kind: kind}, nil
	}

	if req.Since == "" {
		return models.Mode{}, errors.New("since is required for incremental mode")
	}
	mode := models.Mode{Kind: kind}
	if mode.Since, err = time.Parse(time.RFC3339, req.Since); err != nil {
		return models.Mode{}, errors.New("since must be an RFC3339 timestamp")
	}
	if req.Until != "" {
		if mode.Until, err = time.Parse(time.RFC3339, req.Until); err != nil {
			return models.Mode{}, errors.New("until must be an RFC3339 timestamp")
		}
		if !mode.Until.After(mode.Since) {
			return models.Mode{}, errors.New("until must be after since")
		}
	}
	mode.Since = mode.Since.UTC()
	if !mode.Until.IsZero() {
		mode.Until = mode.Until.UTC()
	}
	return mode, nil
}

// SyncRuns lists recent run summaries, newest first.
func (h *Handler) SyncRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Run history is disabled", nil)
		return
	}

	limit, err := getIntParam(r, "limit", 20)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	q := runsQuery{Limit: limit}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	runs, err := h.history.ListRuns(r.Context(), q.Limit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Failed to load run history", err)
		return
	}
	respondSuccess(w, http.StatusOK, runs)
}
