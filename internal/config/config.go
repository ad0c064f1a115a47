// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/funnelsync/internal/models"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
type Config struct {
	CRM         CRMConfig           `koanf:"crm"`
	Destination DestinationConfig   `koanf:"destination"`
	Sync        SyncConfig          `koanf:"sync"`
	Schedule    ScheduleConfig      `koanf:"schedule"`
	FieldTable  map[string][]string `koanf:"field_table"`
	Database    DatabaseConfig      `koanf:"database"`
	Server      ServerConfig        `koanf:"server"`
	Security    SecurityConfig      `koanf:"security"`
	Logging     LoggingConfig       `koanf:"logging"`
}

// CRMConfig configures the source CRM connector.
type CRMConfig struct {
	URL      string `koanf:"url" validate:"required"`
	Token    string `koanf:"token" validate:"required"`
	Instance string `koanf:"instance"`

	// Timeout bounds a single HTTP request including 429 retries.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// MaxRetries and RetryBaseDelay drive exponential backoff on HTTP 429.
	MaxRetries     int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay" validate:"gte=0"`

	// CircuitBreaker wraps the client with sony/gobreaker when true.
	CircuitBreaker bool `koanf:"circuit_breaker"`
}

// DestinationConfig configures the PostgREST-shaped reporting store.
type DestinationConfig struct {
	URL        string        `koanf:"url" validate:"required"`
	APIKey     string        `koanf:"api_key" validate:"required"`
	Schema     string        `koanf:"schema" validate:"required"`
	Table      string        `koanf:"table" validate:"required"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries int           `koanf:"max_retries" validate:"gte=0,lte=10"`
}

// SyncConfig configures the orchestrator.
type SyncConfig struct {
	PageSize         int           `koanf:"page_size" validate:"gte=1,lte=100"`
	SourceDelay      time.Duration `koanf:"source_delay" validate:"gte=0"`
	DestinationDelay time.Duration `koanf:"destination_delay" validate:"gte=0"`

	// Mode is the mode of scheduled runs: full or incremental.
	Mode string `koanf:"mode" validate:"oneof=full incremental"`

	// Lookback is the incremental window length ending at the run start.
	Lookback time.Duration `koanf:"lookback" validate:"gte=0"`

	Funnels []models.StageDescriptor `koanf:"funnels" validate:"dive"`

	// FunnelsSpec is the compact SYNC_FUNNELS form. When set it replaces Funnels.
	FunnelsSpec string `koanf:"funnels_spec"`
}

// Schedule trigger kinds.
const (
	ScheduleFixedTimes = "fixed_times"
	ScheduleInterval   = "interval"
	ScheduleOnce       = "once"
)

// ScheduleConfig configures the scheduler triggers.
type ScheduleConfig struct {
	Kind     string        `koanf:"kind" validate:"oneof=fixed_times interval once"`
	Times    []string      `koanf:"times" validate:"dive,timeofday"`
	Interval time.Duration `koanf:"interval" validate:"gte=0"`

	// WindowStart and WindowEnd bound the operating hours as [start, end).
	// Both empty disables the window; end before start wraps past midnight.
	WindowStart string `koanf:"window_start" validate:"omitempty,timeofday"`
	WindowEnd   string `koanf:"window_end" validate:"omitempty,timeofday"`

	Timezone  string `koanf:"timezone"`
	AutoStart bool   `koanf:"auto_start"`
}

// Location resolves Timezone, falling back to UTC when empty.
func (s *ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// DatabaseConfig configures the DuckDB run history store.
type DatabaseConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ServerConfig configures the HTTP control API listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig configures CORS and request rate limiting of the control API.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load loads and validates configuration. It is the entry point used by main.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
