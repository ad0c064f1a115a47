// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/funnelsync/internal/logging"
	"github.com/tomtom215/funnelsync/internal/metrics"
)

// rateLimitedDoer sends requests and retries HTTP 429 with exponential
// backoff (base, 2*base, 4*base, ...), honouring Retry-After in seconds.
type rateLimitedDoer struct {
	client         *http.Client
	target         string
	maxRetries     int
	retryBaseDelay time.Duration
}

// do performs the request built by newReq. newReq is called once per attempt
// so request bodies can be replayed.
func (d *rateLimitedDoer) do(ctx context.Context, op string, newReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := newReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		start := time.Now()
		resp, err := d.client.Do(req)
		metrics.RecordHTTPRequest(d.target, op, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()
		metrics.RecordRateLimited(d.target)

		if attempt == d.maxRetries {
			lastErr = &HTTPStatusError{
				Op:         op,
				StatusCode: http.StatusTooManyRequests,
				Body:       fmt.Sprintf("rate limit exceeded after %d retries", d.maxRetries),
			}
			break
		}

		delay := d.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}

		logging.Warn().
			Str("target", d.target).
			Str("operation", op).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Rate limited, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}
