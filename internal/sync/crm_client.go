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

	"github.com/goccy/go-json"

	"github.com/tomtom215/funnelsync/internal/config"
	"github.com/tomtom215/funnelsync/internal/logging"
	"github.com/tomtom215/funnelsync/internal/models"
)

// SourceClient reads opportunities from the CRM, one stage page at a time.
type SourceClient interface {
	FetchPage(ctx context.Context, funnelID, stageID int64, page, pageSize int) ([]models.SourceOpportunity, error)
	Ping(ctx context.Context, funnelID, stageID int64) error
}

// CRMClient talks to the CRM opportunities endpoint.
type CRMClient struct {
	baseURL  string
	token    string
	instance string
	doer     *rateLimitedDoer
}

// NewCRMClient creates a CRM client from configuration.
func NewCRMClient(cfg *config.CRMConfig) *CRMClient {
	return &CRMClient{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		token:    cfg.Token,
		instance: cfg.Instance,
		doer: &rateLimitedDoer{
			client:         &http.Client{Timeout: cfg.Timeout},
			target:         "crm",
			maxRetries:     cfg.MaxRetries,
			retryBaseDelay: cfg.RetryBaseDelay,
		},
	}
}

type pageRequest struct {
	Page     int   `json:"page"`
	Limit    int   `json:"limit"`
	ColumnID int64 `json:"columnId"`
}

// FetchPage returns page (zero-based) of stageID within funnelID. An empty
// slice means the stage has no more records.
func (c *CRMClient) FetchPage(ctx context.Context, funnelID, stageID int64, page, pageSize int) ([]models.SourceOpportunity, error) {
	if err := validatePageSize(pageSize); err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, fmt.Errorf("page must not be negative: got %d", page)
	}

	body, err := json.Marshal(pageRequest{Page: page, Limit: pageSize, ColumnID: stageID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode page request: %w", err)
	}

	endpoint := c.endpoint(funnelID)
	logging.Trace().
		Str("url", logging.RedactURL(endpoint)).
		Int64("stage_id", stageID).
		Int("page", page).
		Msg("Fetching CRM page")

	resp, err := c.doer.do(ctx, "fetch_page", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("stage %d page %d: %w", stageID, page, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{
			Op:         fmt.Sprintf("stage %d page %d", stageID, page),
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read CRM response: %w", err)
	}

	records, err := decodePage(raw)
	if err != nil {
		return nil, fmt.Errorf("stage %d page %d: %w", stageID, page, err)
	}
	return records, nil
}

// Ping checks connectivity and credentials with a one-record fetch.
func (c *CRMClient) Ping(ctx context.Context, funnelID, stageID int64) error {
	_, err := c.FetchPage(ctx, funnelID, stageID, 0, 1)
	if err != nil {
		return fmt.Errorf("CRM ping failed: %w", err)
	}
	return nil
}

func (c *CRMClient) endpoint(funnelID int64) string {
	q := url.Values{}
	q.Set("apitoken", c.token)
	if c.instance != "" {
		q.Set("i", c.instance)
	}
	return c.baseURL + "/crm/opportunities/" + strconv.FormatInt(funnelID, 10) + "?" + q.Encode()
}

// decodePage accepts a bare array or an envelope {"data": [...]}.
func decodePage(raw []byte) ([]models.SourceOpportunity, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty CRM response")
	}

	switch raw[0] {
	case '[':
		var records []models.SourceOpportunity
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("failed to decode CRM page: %w", err)
		}
		return records, nil
	case '{':
		var envelope struct {
			Data *[]models.SourceOpportunity `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode CRM page: %w", err)
		}
		if envelope.Data == nil {
			return nil, fmt.Errorf("CRM response object has no data array")
		}
		return *envelope.Data, nil
	default:
		return nil, fmt.Errorf("unexpected CRM response: %.64s", raw)
	}
}
