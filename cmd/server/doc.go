// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

/*
Package main is the entry point for the Funnelsync server.

Funnelsync copies sales opportunities from a CRM's pipeline stages into a
PostgREST-style reporting table. Each run pages through every configured
stage, maps records to the reporting schema, and inserts or updates rows
whose update date moved forward. Runs happen on a schedule (fixed times of
day, a fixed interval, or once) inside optional operating hours, or on
demand through the control API.

# Application Architecture

	RootSupervisor ("funnelsync")
	├── SyncSupervisor ("sync-layer")
	│   └── SchedulerService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (chi control API + /metrics)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment variables
 2. Logging: zerolog with JSON/console output modes
 3. CRM client: rate-limited HTTP client, optionally behind a circuit breaker
 4. Destination client: PostgREST writer
 5. Orchestrator: field mapper, change detector, pacers
 6. Run history: DuckDB (optional)
 7. Scheduler: triggers, operating-hours window, run completion hooks
 8. Supervisor tree and HTTP server

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains, the
scheduler disarms, and an in-flight run stops at the next stage boundary
with a summary marked cancelled.

# Example Usage

	export CRM_URL=https://crm.example.com CRM_TOKEN=... CRM_INSTANCE=acme
	export DEST_URL=https://db.example.com/rest/v1 DEST_API_KEY=...
	export SYNC_FUNNELS="4:Inbound:11,12,13;5:Outbound:21,22"
	export SCHEDULE_TIMES=08:00,12:00,18:00 SCHEDULE_TIMEZONE=America/Sao_Paulo
	./funnelsync
*/
package main
