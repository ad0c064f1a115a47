// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/funnelsync/internal/logging"
	"github.com/tomtom215/funnelsync/internal/metrics"
	"github.com/tomtom215/funnelsync/internal/models"
)

var (
	// ErrAlreadyRunning is returned when a run is requested while one is in progress.
	ErrAlreadyRunning = errors.New("a sync run is already in progress")

	// ErrNotRunning is returned by Stop when the scheduler is not armed.
	ErrNotRunning = errors.New("scheduler is not running")

	// ErrShuttingDown is returned for run or start requests once Drain has
	// been called or the context given to Start is done.
	ErrShuttingDown = errors.New("scheduler is shutting down")
)

// State is the externally visible scheduler state.
type State string

const (
	StateIdle    State = "idle"
	StateArmed   State = "armed"
	StateRunning State = "running"
)

// Runner executes one synchronization run.
type Runner interface {
	Execute(ctx context.Context, stages []models.StageDescriptor, mode models.Mode) models.RunSummary
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State       State              `json:"state"`
	LastRunTime *time.Time         `json:"last_run_time"`
	NextRunTime *time.Time         `json:"next_run_time"`
	LastSummary *models.RunSummary `json:"last_summary"`
}

// Config configures a Scheduler.
type Config struct {
	Schedule *Schedule
	Stages   []models.StageDescriptor

	// Mode is the kind of scheduled and forced runs: full or incremental.
	Mode models.ModeKind

	// Lookback is the incremental window length ending at the run start.
	Lookback time.Duration
}

type timer interface {
	Stop() bool
}

// Scheduler arms a timer for the next scheduled instant and runs the
// orchestrator when it fires. At most one run is in progress at a time;
// requests made while running are rejected, never queued.
type Scheduler struct {
	runner   Runner
	stages   []models.StageDescriptor
	schedule *Schedule
	modeFn   func(now time.Time) models.Mode
	logger   zerolog.Logger

	mu          sync.Mutex
	started     bool
	running     bool
	timer       timer
	nextRun     time.Time
	lastRun     time.Time
	lastSlot    time.Time
	lastSummary *models.RunSummary
	onComplete  []func(models.RunSummary)
	baseCtx     context.Context
	draining    bool
	wg          sync.WaitGroup

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) timer
}

// New creates an idle scheduler.
func New(runner Runner, cfg Config) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler requires a runner")
	}
	if cfg.Schedule == nil || cfg.Schedule.Trigger == nil {
		return nil, fmt.Errorf("scheduler requires a schedule")
	}
	if len(cfg.Stages) == 0 {
		return nil, fmt.Errorf("scheduler requires at least one funnel")
	}

	var modeFn func(time.Time) models.Mode
	switch cfg.Mode {
	case models.ModeFull, "":
		modeFn = func(time.Time) models.Mode { return models.FullMode() }
	case models.ModeIncremental:
		lookback := cfg.Lookback
		modeFn = func(now time.Time) models.Mode { return models.IncrementalSince(now.Add(-lookback)) }
	default:
		return nil, fmt.Errorf("scheduled mode must be full or incremental, got %q", cfg.Mode)
	}

	return &Scheduler{
		runner:    runner,
		stages:    cfg.Stages,
		schedule:  cfg.Schedule,
		modeFn:    modeFn,
		logger:    logging.WithComponent("scheduler"),
		now:       time.Now,
		afterFunc: func(d time.Duration, f func()) timer { return time.AfterFunc(d, f) },
	}, nil
}

// OnRunCompleted registers fn to be called after every run, scheduled or
// forced. Hooks run on the run's goroutine.
func (s *Scheduler) OnRunCompleted(fn func(models.RunSummary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = append(s.onComplete, fn)
}

// Start arms the scheduler. Scheduled runs use ctx, so cancelling it lets an
// in-flight run stop at the next stage boundary. Calling Start on an armed
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draining {
		return ErrShuttingDown
	}
	if s.started {
		return nil
	}
	s.started = true
	s.baseCtx = ctx

	next, ok := s.schedule.First(s.now())
	s.armLocked(next, ok)

	s.logger.Info().Str("state", string(s.stateLocked())).Msg("Scheduler started")
	return nil
}

// Stop disarms the scheduler. A run in progress is not interrupted.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotRunning
	}
	s.started = false
	s.disarmLocked()
	s.publishStateLocked()

	s.logger.Info().Bool("run_in_progress", s.running).Msg("Scheduler stopped")
	return nil
}

// ForceRun runs immediately, ignoring the operating-hours window, and
// returns the summary. The next scheduled time is left unchanged.
func (s *Scheduler) ForceRun(ctx context.Context) (models.RunSummary, error) {
	if err := s.beginRun(); err != nil {
		return models.RunSummary{}, err
	}
	defer s.wg.Done()

	startedAt := s.now()
	summary := s.execute(ctx, s.modeFn(startedAt), "forced")
	s.finishRun(summary, startedAt, false)
	return summary, nil
}

// Trigger starts a forced run with an explicit mode in the background. A
// zero mode kind uses the scheduled mode. The run outlives ctx but stops at
// a stage boundary when the context given to Start is cancelled.
func (s *Scheduler) Trigger(ctx context.Context, mode models.Mode) error {
	if err := s.beginRun(); err != nil {
		return err
	}
	if mode.Kind == "" {
		mode = s.modeFn(s.now())
	}

	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := func() bool { return false }
	if base != nil {
		stopAfter = context.AfterFunc(base, cancel)
	}

	go func() {
		defer s.wg.Done()
		defer cancel()
		defer stopAfter()

		startedAt := s.now()
		summary := s.execute(runCtx, mode, "api")
		s.finishRun(summary, startedAt, false)
	}()
	return nil
}

// Status returns the current state and run times.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{State: s.stateLocked()}
	if !s.lastRun.IsZero() {
		t := s.lastRun
		st.LastRunTime = &t
	}
	if !s.nextRun.IsZero() {
		t := s.nextRun
		st.NextRunTime = &t
	}
	if s.lastSummary != nil {
		summary := *s.lastSummary
		st.LastSummary = &summary
	}
	return st
}

// Wait blocks until no run is in progress.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Drain disarms the scheduler for good, rejects further runs with
// ErrShuttingDown and waits for the run in progress, if any.
func (s *Scheduler) Drain() {
	s.mu.Lock()
	s.draining = true
	s.started = false
	s.disarmLocked()
	s.publishStateLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

// fire is the timer callback for slot.
func (s *Scheduler) fire(slot time.Time) {
	s.mu.Lock()

	if !s.started || s.draining || !slot.Equal(s.nextRun) {
		// Disarmed or re-armed since this timer was set.
		s.mu.Unlock()
		return
	}

	if s.running {
		s.logger.Warn().Time("slot", slot).Msg("Run in progress, skipping scheduled slot")
		s.rearmLocked(slot)
		s.mu.Unlock()
		return
	}

	if slot.Equal(s.lastSlot) {
		s.logger.Debug().Time("slot", slot).Msg("Slot already ran, skipping")
		s.rearmLocked(slot)
		s.mu.Unlock()
		return
	}

	s.running = true
	s.lastSlot = slot
	s.nextRun = time.Time{}
	s.timer = nil
	s.wg.Add(1)
	ctx := s.baseCtx
	s.publishStateLocked()
	s.mu.Unlock()

	defer s.wg.Done()

	startedAt := s.now()
	summary := s.execute(ctx, s.modeFn(startedAt), "scheduled")
	s.finishRun(summary, startedAt, true)
}

func (s *Scheduler) beginRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// No wg.Add may race with Drain's wg.Wait.
	if s.draining || (s.baseCtx != nil && s.baseCtx.Err() != nil) {
		return ErrShuttingDown
	}
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.wg.Add(1)
	s.publishStateLocked()
	return nil
}

func (s *Scheduler) finishRun(summary models.RunSummary, startedAt time.Time, scheduled bool) {
	s.mu.Lock()
	s.running = false
	s.lastRun = startedAt
	s.lastSummary = &summary
	if scheduled && s.started && s.nextRun.IsZero() {
		s.rearmLocked(s.lastSlot)
	}
	s.publishStateLocked()
	hooks := append([]func(models.RunSummary){}, s.onComplete...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(summary)
	}
}

func (s *Scheduler) execute(ctx context.Context, mode models.Mode, trigger string) models.RunSummary {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.ContextWithNewCorrelationID(ctx)
	logger := logging.Ctx(ctx)

	logger.Info().Str("trigger", trigger).Str("mode", string(mode.Kind)).Msg("Starting sync run")

	start := time.Now()
	summary := s.runner.Execute(ctx, s.stages, mode)
	duration := time.Since(start)

	metrics.RecordRun(string(mode.Kind), duration, len(summary.Errors), summary.Cancelled)

	logger.Info().
		Str("trigger", trigger).
		Str("run_id", summary.RunID).
		Int("found", summary.Totals.Found).
		Int("inserted", summary.Totals.Inserted).
		Int("updated", summary.Totals.Updated).
		Int("skipped", summary.Totals.Skipped).
		Int("errors", len(summary.Errors)).
		Dur("duration", duration).
		Msg("Sync run completed")

	return summary
}

// rearmLocked arms the slot following slot. Slots already in the past are
// skipped.
func (s *Scheduler) rearmLocked(slot time.Time) {
	now := s.now()
	next, ok := s.schedule.Next(slot)
	if ok && !next.After(now) {
		s.logger.Warn().Time("missed", next).Msg("Scheduled slot already passed, skipping ahead")
		next, ok = s.schedule.Next(now)
	}
	s.armLocked(next, ok)
}

func (s *Scheduler) armLocked(next time.Time, ok bool) {
	s.disarmLocked()

	if !ok {
		s.started = false
		s.publishStateLocked()
		s.logger.Info().Msg("No further scheduled runs")
		return
	}

	s.nextRun = next
	s.timer = s.afterFunc(next.Sub(s.now()), func() { s.fire(next) })
	s.publishStateLocked()

	s.logger.Info().Time("next_run", next).Msg("Next sync run armed")
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.nextRun = time.Time{}
}

func (s *Scheduler) stateLocked() State {
	switch {
	case s.running:
		return StateRunning
	case s.started:
		return StateArmed
	default:
		return StateIdle
	}
}

func (s *Scheduler) publishStateLocked() {
	switch s.stateLocked() {
	case StateRunning:
		metrics.SetSchedulerState(metrics.SchedulerRunning)
	case StateArmed:
		metrics.SetSchedulerState(metrics.SchedulerArmed)
	default:
		metrics.SetSchedulerState(metrics.SchedulerIdle)
	}
}
