// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package models

import (
	"time"
)

// APIResponse is the envelope of every control API response.
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "SYNC_IN_PROGRESS", "message": "a sync run is already in progress"},
//	  "metadata": {"timestamp": "2026-03-02T08:00:01Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response bookkeeping.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable error code plus a human message.
//
// Codes used by the control API:
//   - VALIDATION_ERROR: malformed or invalid request body / query
//   - SYNC_IN_PROGRESS: a run is already active
//   - SCHEDULER_NOT_RUNNING: stop requested while idle
//   - HISTORY_UNAVAILABLE: run history store disabled or failing
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RunRequest is the body of POST /api/v1/sync/run.
// Since and Until are RFC3339; both are ignored unless Mode is incremental.
type RunRequest struct {
	Mode  string `json:"mode" validate:"omitempty,syncmode"`
	Since string `json:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Until string `json:"until" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// RunAccepted is returned with 202 when a run has been started.
type RunAccepted struct {
	Mode      Mode      `json:"mode"`
	StartedAt time.Time `json:"started_at"`
}
