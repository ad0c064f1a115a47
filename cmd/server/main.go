// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/funnelsync/internal/api"
	"github.com/tomtom215/funnelsync/internal/config"
	"github.com/tomtom215/funnelsync/internal/database"
	"github.com/tomtom215/funnelsync/internal/logging"
	"github.com/tomtom215/funnelsync/internal/models"
	"github.com/tomtom215/funnelsync/internal/scheduler"
	"github.com/tomtom215/funnelsync/internal/supervisor"
	"github.com/tomtom215/funnelsync/internal/supervisor/services"
	"github.com/tomtom215/funnelsync/internal/sync"
)

const (
	startupPingTimeout = 15 * time.Second
	saveRunTimeout     = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("crm_url", logging.RedactURL(cfg.CRM.URL)).
		Str("destination_url", logging.RedactURL(cfg.Destination.URL)).
		Str("destination_table", cfg.Destination.Schema+"."+cfg.Destination.Table).
		Int("funnels", len(cfg.Sync.Funnels)).
		Str("schedule", cfg.Schedule.Kind).
		Msg("Starting Funnelsync")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := newSourceClient(&cfg.CRM)
	pingSource(ctx, source, cfg.Sync.Funnels)

	orchestrator, err := newOrchestrator(cfg, source)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create orchestrator")
	}

	schedule, err := scheduler.FromConfig(&cfg.Schedule)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build schedule")
	}

	mode, err := models.ParseModeKind(cfg.Sync.Mode)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid sync mode")
	}

	sched, err := scheduler.New(orchestrator, scheduler.Config{
		Schedule: schedule,
		Stages:   cfg.Sync.Funnels,
		Mode:     mode,
		Lookback: cfg.Sync.Lookback,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	var history api.RunHistory
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open run history database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing run history database")
			}
		}()
		sched.OnRunCompleted(saveRunHook(db))
		history = db
	} else {
		logging.Info().Msg("Run history disabled")
	}

	handler := api.NewHandler(ctx, sched, history)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddSyncService(services.NewSchedulerService(sched, cfg.Schedule.AutoStart))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	logging.Info().Str("addr", server.Addr).Bool("auto_start", cfg.Schedule.AutoStart).Msg("Supervisor tree starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Funnelsync stopped")
}

// newSourceClient builds the CRM client, behind a circuit breaker unless
// disabled.
func newSourceClient(cfg *config.CRMConfig) sync.SourceClient {
	client := sync.NewCRMClient(cfg)
	if !cfg.CircuitBreaker {
		return client
	}
	return sync.NewCircuitBreakerCRMClient(client)
}

// pingSource checks CRM reachability with the first configured stage.
// A failure is logged only; scheduled runs retry on their own.
func pingSource(ctx context.Context, source sync.SourceClient, funnels []models.StageDescriptor) {
	for _, f := range funnels {
		if len(f.StageIDs) == 0 {
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
		err := source.Ping(pingCtx, f.FunnelID, f.StageIDs[0])
		cancel()
		if err != nil {
			logging.Warn().Err(err).Int64("funnel_id", f.FunnelID).Msg("CRM is not reachable (runs will retry)")
			return
		}
		logging.Info().Int64("funnel_id", f.FunnelID).Msg("Connected to CRM")
		return
	}
}

func newOrchestrator(cfg *config.Config, source sync.SourceClient) (*sync.Orchestrator, error) {
	table, err := sync.NewFieldTable(cfg.FieldTable)
	if err != nil {
		return nil, err
	}

	return sync.NewOrchestrator(
		source,
		sync.NewDestinationClient(&cfg.Destination),
		sync.NewFieldMapper(table),
		sync.NewPacer("crm", cfg.Sync.SourceDelay),
		sync.NewPacer("destination", cfg.Sync.DestinationDelay),
		cfg.Sync.PageSize,
	)
}

// saveRunHook persists each finished run. The run's own context may be
// cancelled at shutdown, so the save gets a fresh deadline.
func saveRunHook(db *database.DB) func(models.RunSummary) {
	return func(summary models.RunSummary) {
		ctx, cancel := context.WithTimeout(context.Background(), saveRunTimeout)
		defer cancel()
		if err := db.SaveRun(ctx, &summary); err != nil {
			logging.Error().Err(err).Str("run_id", summary.RunID).Msg("Failed to save run history")
		}
	}
}
