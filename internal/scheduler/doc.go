// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

/*
Package scheduler decides when synchronization runs happen.

A Scheduler is idle until Start arms a timer for the next instant of its
Schedule. When the timer fires the scheduler is running; afterwards it is
armed again for the following instant, whatever the outcome of the run.

	idle --Start--> armed --timer--> running --done--> armed
	  ^               |
	  +-----Stop------+

Triggers:
  - FixedTimes: every day at the listed times of day ("08:00", "20:00")
  - Interval: every N minutes or hours
  - Once: a single run, immediately or at a given instant

An optional operating-hours Window [start, end) applies to any trigger and
may wrap past midnight. Interval and Once instants outside the window move
to the next window opening; fixed-time slots outside it are skipped.

ForceRun and Trigger run immediately regardless of the window and leave the
next scheduled instant untouched. Requests made while a run is in progress
fail with ErrAlreadyRunning; they are never queued. A scheduled slot never
runs twice.
*/
package scheduler
