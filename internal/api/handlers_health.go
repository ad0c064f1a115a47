// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package api

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 2 * time.Second

// HealthLive returns 200 while the process is alive, regardless of
// dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady returns 200 when the scheduler is wired and the run history
// store (if enabled) answers a ping, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{
		"scheduler": h.sync != nil,
	}
	if h.history != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		checks["run_history"] = h.history.Ping(ctx) == nil
		cancel()
	}

	ready := true
	for _, ok := range checks {
		ready = ready && ok
	}

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondSuccess(w, statusCode, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
