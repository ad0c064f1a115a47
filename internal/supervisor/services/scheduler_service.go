// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/funnelsync/internal/logging"
	"github.com/tomtom215/funnelsync/internal/scheduler"
)

// SchedulerLifecycle is the lifecycle subset of *scheduler.Scheduler.
type SchedulerLifecycle interface {
	Start(ctx context.Context) error
	Stop() error
	Drain()
}

// SchedulerService supervises the scheduler.
//
// With autoStart the scheduler is armed when the service starts; otherwise
// it stays idle until armed through the control API. On cancellation the
// scheduler is disarmed and Serve returns once any in-flight run (scheduled
// or triggered) has finished.
type SchedulerService struct {
	scheduler SchedulerLifecycle
	autoStart bool
	name      string
}

// NewSchedulerService wraps s.
func NewSchedulerService(s SchedulerLifecycle, autoStart bool) *SchedulerService {
	return &SchedulerService{
		scheduler: s,
		autoStart: autoStart,
		name:      "scheduler",
	}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if s.autoStart {
		if err := s.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("scheduler start failed: %w", err)
		}
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}

	logging.Info().Msg("Waiting for in-flight sync run to finish")
	s.scheduler.Drain()
	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *SchedulerService) String() string {
	return s.name
}
