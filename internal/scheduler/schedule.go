// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/funnelsync/internal/config"
)

// maxWindowSkips bounds the search for an in-window slot.
const maxWindowSkips = 1000

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// on returns t on the calendar day of day, in day's location.
func (t TimeOfDay) on(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// Window is an operating-hours window [Start, End). End before Start wraps
// past midnight; Start equal to End is open all day.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether t's wall-clock time is inside the window.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	start, end := w.Start.minutes(), w.End.minutes()

	switch {
	case start == end:
		return true
	case start < end:
		return m >= start && m < end
	default:
		return m >= start || m < end
	}
}

// NextOpen returns t when inside the window, else the next window start.
func (w Window) NextOpen(t time.Time) time.Time {
	if w.Contains(t) {
		return t
	}
	open := w.Start.on(t)
	if open.Before(t) {
		open = w.Start.on(t.AddDate(0, 0, 1))
	}
	return open
}

// Trigger produces scheduled instants.
type Trigger interface {
	// First returns the first instant at or after now.
	First(now time.Time) (time.Time, bool)
	// Next returns the instant following slot; false when there is none.
	Next(slot time.Time) (time.Time, bool)
	// snapsToWindow reports whether an out-of-window instant moves to the
	// window opening rather than to the trigger's next instant.
	snapsToWindow() bool
}

// FixedTimes fires at each listed time of day.
type FixedTimes struct {
	times []TimeOfDay
}

// NewFixedTimes creates a fixed-times trigger. Duplicates are dropped.
func NewFixedTimes(times ...TimeOfDay) (*FixedTimes, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("fixed times trigger needs at least one time")
	}
	seen := make(map[int]bool, len(times))
	sorted := make([]TimeOfDay, 0, len(times))
	for _, t := range times {
		if seen[t.minutes()] {
			continue
		}
		seen[t.minutes()] = true
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].minutes() < sorted[j].minutes() })
	return &FixedTimes{times: sorted}, nil
}

func (f *FixedTimes) First(now time.Time) (time.Time, bool) {
	return f.next(now, true), true
}

func (f *FixedTimes) Next(slot time.Time) (time.Time, bool) {
	return f.next(slot, false), true
}

func (f *FixedTimes) snapsToWindow() bool { return false }

func (f *FixedTimes) next(after time.Time, inclusive bool) time.Time {
	for day := 0; day <= 2; day++ {
		base := after.AddDate(0, 0, day)
		for _, tod := range f.times {
			c := tod.on(base)
			if c.After(after) || (inclusive && c.Equal(after)) {
				return c
			}
		}
	}
	// Unreachable with at least one time per day.
	return after.AddDate(0, 0, 1)
}

// Interval fires every Every, starting one interval after the scheduler
// starts.
type Interval struct {
	Every time.Duration
}

func (i *Interval) First(now time.Time) (time.Time, bool) {
	return now.Add(i.Every), true
}

func (i *Interval) Next(slot time.Time) (time.Time, bool) {
	return slot.Add(i.Every), true
}

func (i *Interval) snapsToWindow() bool { return true }

// Once fires a single time at At, or immediately when At is zero.
type Once struct {
	At time.Time
}

func (o *Once) First(now time.Time) (time.Time, bool) {
	if o.At.IsZero() {
		return now, true
	}
	return o.At, true
}

func (o *Once) Next(time.Time) (time.Time, bool) {
	return time.Time{}, false
}

func (o *Once) snapsToWindow() bool { return true }

// Schedule combines a trigger with an optional window, evaluated in
// Location.
type Schedule struct {
	Trigger  Trigger
	Window   *Window
	Location *time.Location
}

// First returns the first in-window instant at or after now.
func (s *Schedule) First(now time.Time) (time.Time, bool) {
	return s.fit(s.Trigger.First(now.In(s.location())))
}

// Next returns the first in-window instant after slot.
func (s *Schedule) Next(slot time.Time) (time.Time, bool) {
	return s.fit(s.Trigger.Next(slot.In(s.location())))
}

func (s *Schedule) fit(t time.Time, ok bool) (time.Time, bool) {
	if !ok || s.Window == nil {
		return t, ok
	}
	for i := 0; i < maxWindowSkips; i++ {
		if s.Window.Contains(t) {
			return t, true
		}
		if s.Trigger.snapsToWindow() {
			return s.Window.NextOpen(t), true
		}
		if t, ok = s.Trigger.Next(t); !ok {
			return time.Time{}, false
		}
	}
	return time.Time{}, false
}

func (s *Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// FromConfig builds a Schedule from configuration.
func FromConfig(cfg *config.ScheduleConfig) (*Schedule, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Schedule{Location: loc}

	switch cfg.Kind {
	case config.ScheduleFixedTimes:
		times := make([]TimeOfDay, 0, len(cfg.Times))
		for _, raw := range cfg.Times {
			tod, err := ParseTimeOfDay(raw)
			if err != nil {
				return nil, err
			}
			times = append(times, tod)
		}
		if s.Trigger, err = NewFixedTimes(times...); err != nil {
			return nil, err
		}
	case config.ScheduleInterval:
		if cfg.Interval <= 0 {
			return nil, fmt.Errorf("interval must be positive, got %v", cfg.Interval)
		}
		s.Trigger = &Interval{Every: cfg.Interval}
	case config.ScheduleOnce:
		s.Trigger = &Once{}
	default:
		return nil, fmt.Errorf("unknown schedule kind %q", cfg.Kind)
	}

	if cfg.WindowStart != "" || cfg.WindowEnd != "" {
		start, err := ParseTimeOfDay(cfg.WindowStart)
		if err != nil {
			return nil, err
		}
		end, err := ParseTimeOfDay(cfg.WindowEnd)
		if err != nil {
			return nil, err
		}
		s.Window = &Window{Start: start, End: end}
	}

	return s, nil
}
