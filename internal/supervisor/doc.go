// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

/*
Package supervisor provides process supervision for Funnelsync using suture v4.

	RootSupervisor ("funnelsync")
	├── SyncSupervisor ("sync-layer")
	│   └── SchedulerService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's backoff. Cancelling the root
context stops every service: the HTTP server drains connections, the
scheduler disarms and waits for an in-flight run to reach a stage boundary.

Supervisor events are logged through sutureslog with a zerolog-backed slog
handler:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddSyncService(services.NewSchedulerService(sched, cfg.Schedule.AutoStart))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
