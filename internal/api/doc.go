// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

/*
Package api provides the HTTP control API for Funnelsync.

Routes (chi v5):

	GET  /api/v1/health/live    liveness probe
	GET  /api/v1/health/ready   readiness probe (scheduler wired, run history reachable)
	GET  /api/v1/sync/status    scheduler state, last/next run, last summary
	POST /api/v1/sync/start     arm the scheduler
	POST /api/v1/sync/stop      disarm the scheduler (409 when idle)
	POST /api/v1/sync/run       start a forced run, 202 or 409 when one is in progress
	GET  /api/v1/sync/runs      recent run summaries (?limit=1..500, default 20)
	GET  /metrics               Prometheus metrics

Every response uses the models.APIResponse envelope. Sync routes are rate
limited per client IP with go-chi/httprate and counted in
funnelsync_api_requests_total by route pattern.

Example:

	curl -X POST localhost:3880/api/v1/sync/run \
	    -d '{"mode":"incremental","since":"2026-03-01T00:00:00Z"}'
*/
package api
