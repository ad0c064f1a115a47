// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/funnelsync/internal/models"
	"github.com/tomtom215/funnelsync/internal/validation"
)

// Validate checks that required configuration is present and valid.
// Struct tags are checked first, then the cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := validateHTTPURL(c.CRM.URL, "CRM_URL", false); err != nil {
		return err
	}

	// PostgREST deployments are commonly mounted under a path such as /rest/v1.
	if err := validateHTTPURL(c.Destination.URL, "DEST_URL", true); err != nil {
		return err
	}

	if err := c.validateFunnels(); err != nil {
		return err
	}

	if err := c.validateSchedule(); err != nil {
		return err
	}

	return c.validateRateLimits()
}

// validateFunnels requires at least one funnel and rejects a stage claimed by
// two funnels, since a stage's funnel would otherwise be ambiguous.
func (c *Config) validateFunnels() error {
	if len(c.Sync.Funnels) == 0 {
		return fmt.Errorf("at least one funnel must be configured (sync.funnels or SYNC_FUNNELS)")
	}

	seenFunnel := make(map[int64]bool)
	for i, f := range c.Sync.Funnels {
		if seenFunnel[f.FunnelID] {
			return fmt.Errorf("funnel %d is configured more than once", f.FunnelID)
		}
		seenFunnel[f.FunnelID] = true

		seenStage := make(map[int64]bool, len(f.StageIDs))
		for _, stageID := range f.StageIDs {
			if seenStage[stageID] {
				return fmt.Errorf("stage %d is claimed by funnels %d and %d", stageID, f.FunnelID, f.FunnelID)
			}
			seenStage[stageID] = true

			if prev := models.FunnelForStage(c.Sync.Funnels[:i], stageID); prev != 0 {
				return fmt.Errorf("stage %d is claimed by funnels %d and %d", stageID, prev, f.FunnelID)
			}
		}
	}
	return nil
}

// validateSchedule checks that the selected trigger kind has what it needs.
func (c *Config) validateSchedule() error {
	s := &c.Schedule

	switch s.Kind {
	case ScheduleFixedTimes:
		if len(s.Times) == 0 {
			return fmt.Errorf("SCHEDULE_TIMES is required when SCHEDULE_KIND=%s", ScheduleFixedTimes)
		}
	case ScheduleInterval:
		if s.Interval < time.Minute {
			return fmt.Errorf("SCHEDULE_INTERVAL must be at least 1m when SCHEDULE_KIND=%s", ScheduleInterval)
		}
	}

	if (s.WindowStart == "") != (s.WindowEnd == "") {
		return fmt.Errorf("SCHEDULE_WINDOW_START and SCHEDULE_WINDOW_END must be set together")
	}
	if s.WindowStart != "" && s.WindowStart == s.WindowEnd {
		return fmt.Errorf("operating-hours window must not be empty")
	}

	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Rate limit bounds for the control API.
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validateHTTPURL validates that a URL is properly formatted for HTTP/HTTPS services.
func validateHTTPURL(rawURL, fieldName string, allowPath bool) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if !allowPath && parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}
