// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/funnelsync/internal/models"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/funnelsync/config.yaml",
	"/etc/funnelsync/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		CRM: CRMConfig{
			URL:            "",
			Token:          "",
			Instance:       "",
			Timeout:        30 * time.Second,
			MaxRetries:     5,
			RetryBaseDelay: time.Second,
			CircuitBreaker: true,
		},
		Destination: DestinationConfig{
			URL:        "",
			APIKey:     "",
			Schema:     "public",
			Table:      "opportunity",
			Timeout:    15 * time.Second,
			MaxRetries: 3,
		},
		Sync: SyncConfig{
			PageSize:         100,
			SourceDelay:      500 * time.Millisecond,
			DestinationDelay: 50 * time.Millisecond,
			Mode:             "full",
			Lookback:         24 * time.Hour,
			Funnels:          []models.StageDescriptor{},
		},
		Schedule: ScheduleConfig{
			Kind:        ScheduleFixedTimes,
			Times:       []string{"08:00", "12:00", "18:00"},
			Interval:    time.Hour,
			WindowStart: "",
			WindowEnd:   "",
			Timezone:    "UTC",
			AutoStart:   true,
		},
		FieldTable: map[string][]string{},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "/data/funnelsync.duckdb",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3880,
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     60,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// CRM_URL -> crm.url, SYNC_FUNNELS -> sync.funnels_spec, ...
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.Sync.FunnelsSpec != "" {
		funnels, err := ParseFunnelSpec(cfg.Sync.FunnelsSpec)
		if err != nil {
			return nil, fmt.Errorf("SYNC_FUNNELS is invalid: %w", err)
		}
		cfg.Sync.Funnels = funnels
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"schedule.times",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment cannot pollute config.
var envMappings = map[string]string{
	// CRM
	"crm_url":             "crm.url",
	"crm_token":           "crm.token",
	"crm_instance":        "crm.instance",
	"crm_timeout":         "crm.timeout",
	"crm_max_retries":     "crm.max_retries",
	"crm_retry_delay":     "crm.retry_base_delay",
	"crm_circuit_breaker": "crm.circuit_breaker",

	// Destination
	"dest_url":         "destination.url",
	"dest_api_key":     "destination.api_key",
	"dest_schema":      "destination.schema",
	"dest_table":       "destination.table",
	"dest_timeout":     "destination.timeout",
	"dest_max_retries": "destination.max_retries",

	// Sync
	"sync_page_size":    "sync.page_size",
	"sync_source_delay": "sync.source_delay",
	"sync_dest_delay":   "sync.destination_delay",
	"sync_mode":         "sync.mode",
	"sync_lookback":     "sync.lookback",
	"sync_funnels":      "sync.funnels_spec",

	// Schedule
	"schedule_kind":         "schedule.kind",
	"schedule_times":        "schedule.times",
	"schedule_interval":     "schedule.interval",
	"schedule_window_start": "schedule.window_start",
	"schedule_window_end":   "schedule.window_end",
	"schedule_timezone":     "schedule.timezone",
	"schedule_auto_start":   "schedule.auto_start",

	// Database
	"duckdb_path":         "database.path",
	"run_history_enabled": "database.enabled",

	// Server
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - CRM_URL -> crm.url
//   - SYNC_DEST_DELAY -> sync.destination_delay
//   - SCHEDULE_TIMES -> schedule.times
//   - DUCKDB_PATH -> database.path
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
