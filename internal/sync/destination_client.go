// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/funnelsync/internal/config"
	"github.com/tomtom215/funnelsync/internal/models"
)

// Result is the outcome of a single destination write.
type Result struct {
	Success    bool
	StatusCode int
	Err        error
}

// DestinationWriter is the reporting store as seen by the orchestrator.
type DestinationWriter interface {
	// Exists returns the stored id and update_date, or nil when no row has id.
	Exists(ctx context.Context, id int64) (*models.ExistingOpportunity, error)
	Insert(ctx context.Context, rec *models.Opportunity) Result
	Update(ctx context.Context, id int64, rec *models.Opportunity) Result
}

// DestinationClient writes opportunity rows to a PostgREST-style REST API,
// one record per request.
type DestinationClient struct {
	baseURL string
	apiKey  string
	schema  string
	table   string
	doer    *rateLimitedDoer
}

// NewDestinationClient creates a destination client from configuration.
func NewDestinationClient(cfg *config.DestinationConfig) *DestinationClient {
	return &DestinationClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		schema:  cfg.Schema,
		table:   cfg.Table,
		doer: &rateLimitedDoer{
			client:         &http.Client{Timeout: cfg.Timeout},
			target:         "destination",
			maxRetries:     cfg.MaxRetries,
			retryBaseDelay: defaultDestinationRetryDelay,
		},
	}
}

// defaultDestinationRetryDelay is the 429 backoff base for the destination.
const defaultDestinationRetryDelay = 500 * time.Millisecond

// Exists looks up id with select=id,update_date.
func (c *DestinationClient) Exists(ctx context.Context, id int64) (*models.ExistingOpportunity, error) {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	q.Set("select", "id,update_date")
	endpoint := c.tableURL() + "?" + q.Encode()

	resp, err := c.doer.do(ctx, "exists", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req, false)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("lookup of %d: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{
			Op:         fmt.Sprintf("lookup of %d", id),
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}

	var rows []models.ExistingOpportunity
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Insert creates rec.
func (c *DestinationClient) Insert(ctx context.Context, rec *models.Opportunity) Result {
	return c.write(ctx, "insert", http.MethodPost, c.tableURL(), rec)
}

// Update overwrites the row with id. Nullable columns missing from rec are
// written as null.
func (c *DestinationClient) Update(ctx context.Context, id int64, rec *models.Opportunity) Result {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	return c.write(ctx, "update", http.MethodPatch, c.tableURL()+"?"+q.Encode(), rec)
}

func (c *DestinationClient) write(ctx context.Context, op, method, endpoint string, rec *models.Opportunity) Result {
	body, err := json.Marshal(rec)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to encode record %d: %w", rec.ID, err)}
	}

	resp, err := c.doer.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req, true)
		return req, nil
	})
	if err != nil {
		return Result{Err: fmt.Errorf("%s of %d: %w", op, rec.ID, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{
			StatusCode: resp.StatusCode,
			Err: &HTTPStatusError{
				Op:         fmt.Sprintf("%s of %d", op, rec.ID),
				StatusCode: resp.StatusCode,
				Body:       string(readBodyForError(resp.Body)),
			},
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return Result{Success: true, StatusCode: resp.StatusCode}
}

func (c *DestinationClient) tableURL() string {
	return c.baseURL + "/" + url.PathEscape(c.table)
}

func (c *DestinationClient) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Profile", c.schema)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Profile", c.schema)
		req.Header.Set("Prefer", "return=minimal")
	}
}
