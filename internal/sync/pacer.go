// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Waiter is what the orchestrator calls before every source and destination
// request. *Pacer implements it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Pacer suspends the caller for a fixed delay before every call, the first
// one included, regardless of how long the previous call took. A limiter
// additionally caps throughput at one call per delay. A zero or negative
// delay disables pacing.
type Pacer struct {
	name    string
	delay   time.Duration
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing one call per delay.
func NewPacer(name string, delay time.Duration) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Pacer{
		name:    name,
		delay:   delay,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Wait sleeps for the configured delay, then until the limiter allows the
// call. It returns ctx.Err() if ctx is done first.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return p.limiter.Wait(ctx)
}

// Delay returns the configured spacing.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Name identifies the pacer in logs.
func (p *Pacer) Name() string {
	return p.name
}
