// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package api

import (
	"context"
	"time"

	"github.com/tomtom215/funnelsync/internal/models"
	"github.com/tomtom215/funnelsync/internal/scheduler"
)

// SyncController is the scheduler surface exposed over HTTP.
type SyncController interface {
	Status() scheduler.Status
	Start(ctx context.Context) error
	Stop() error
	Trigger(ctx context.Context, mode models.Mode) error
}

// RunHistory lists stored run summaries.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_health.go: liveness and readiness probes
//   - handlers_sync.go: scheduler control and run history
type Handler struct {
	sync    SyncController
	history RunHistory

	// baseCtx outlives requests; the scheduler is armed with it so
	// scheduled runs stop when the process shuts down.
	baseCtx   context.Context
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a handler. history may be nil when run history is
// disabled; baseCtx defaults to context.Background.
func NewHandler(baseCtx context.Context, sync SyncController, history RunHistory) *Handler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Handler{
		sync:      sync,
		history:   history,
		baseCtx:   baseCtx,
		startTime: time.Now(),
		now:       time.Now,
	}
}
