// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

/*
Package config provides centralized configuration management for Funnelsync.

Configuration is loaded with Koanf v2 in three layers, later layers winning:

 1. Defaults: built-in values from defaultConfig()
 2. Config File: optional YAML file (CONFIG_PATH, config.yaml, /etc/funnelsync/config.yaml)
 3. Environment Variables: an explicit allow-list mapped in envTransformFunc

# Sections

  - crm: source CRM base URL, API token, instance id, retry budget
  - destination: PostgREST base URL, API key, schema and table
  - sync: page size, source/destination pacing, default mode, lookback, funnels
  - schedule: trigger kind, fixed times, interval, operating-hours window, timezone
  - field_table: per-destination-field overrides of custom-field key variants
  - database: DuckDB run history path
  - server / security: HTTP control API listener, CORS and rate limiting
  - logging: zerolog level, format, caller

# Environment Variables

CRM:
  - CRM_URL, CRM_TOKEN, CRM_INSTANCE, CRM_TIMEOUT, CRM_MAX_RETRIES, CRM_RETRY_DELAY

Destination:
  - DEST_URL, DEST_API_KEY, DEST_SCHEMA, DEST_TABLE, DEST_TIMEOUT, DEST_MAX_RETRIES

Sync:
  - SYNC_PAGE_SIZE, SYNC_SOURCE_DELAY, SYNC_DEST_DELAY, SYNC_MODE, SYNC_LOOKBACK
  - SYNC_FUNNELS: "funnelID:label:stage,stage;funnelID:label:stage"

Schedule:
  - SCHEDULE_KIND (fixed_times|interval|once), SCHEDULE_TIMES ("08:00,20:00"),
    SCHEDULE_INTERVAL, SCHEDULE_WINDOW_START, SCHEDULE_WINDOW_END,
    SCHEDULE_TIMEZONE, SCHEDULE_AUTO_START

Server, database and logging:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, CORS_ORIGINS, RATE_LIMIT_REQUESTS,
    RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - DUCKDB_PATH, RUN_HISTORY_ENABLED
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	client := sync.NewCRMClient(&cfg.CRM)

Funnel descriptors are never discovered from the CRM. Each stage id must be
claimed by exactly one funnel; Validate rejects overlaps.
*/
package config
