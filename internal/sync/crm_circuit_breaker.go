// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/funnelsync/internal/logging"
	"github.com/tomtom215/funnelsync/internal/metrics"
	"github.com/tomtom215/funnelsync/internal/models"
)

const crmBreakerName = "crm-api"

// CircuitBreakerCRMClient wraps a SourceClient with a circuit breaker so a
// failing CRM is not hammered page after page.
//
// Settings:
//   - 3 trial requests in half-open state
//   - counts reset every minute while closed
//   - 2 minutes open before a half-open trial
//   - trips at 60% failures over at least 5 requests
type CircuitBreakerCRMClient struct {
	client SourceClient
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerCRMClient wraps client.
func NewCircuitBreakerCRMClient(client SourceClient) *CircuitBreakerCRMClient {
	return newCircuitBreakerCRMClient(client, 5, 2*time.Minute)
}

func newCircuitBreakerCRMClient(client SourceClient, minRequests uint32, openTimeout time.Duration) *CircuitBreakerCRMClient {
	metrics.CircuitBreakerState.WithLabelValues(crmBreakerName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(crmBreakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        crmBreakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening CRM circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerCRMClient{client: client, cb: cb, name: crmBreakerName}
}

func (c *CircuitBreakerCRMClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] CRM request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
			counts := c.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(0)
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// FetchPage fetches a page through the breaker.
func (c *CircuitBreakerCRMClient) FetchPage(ctx context.Context, funnelID, stageID int64, page, pageSize int) ([]models.SourceOpportunity, error) {
	// Page size mistakes are caller bugs, not CRM failures.
	if err := validatePageSize(pageSize); err != nil {
		return nil, err
	}
	return castResult[[]models.SourceOpportunity](c.execute(func() (interface{}, error) {
		return c.client.FetchPage(ctx, funnelID, stageID, page, pageSize)
	}))
}

// Ping checks connectivity through the breaker.
func (c *CircuitBreakerCRMClient) Ping(ctx context.Context, funnelID, stageID int64) error {
	_, err := c.execute(func() (interface{}, error) {
		return nil, c.client.Ping(ctx, funnelID, stageID)
	})
	return err
}

// State returns the current breaker state.
func (c *CircuitBreakerCRMClient) State() gobreaker.State {
	return c.cb.State()
}

// Counts returns the breaker's request counters.
func (c *CircuitBreakerCRMClient) Counts() gobreaker.Counts {
	return c.cb.Counts()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
