// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/funnelsync/internal/config"
	"github.com/tomtom215/funnelsync/internal/models"
)

func newTestDestinationClient(url string) *DestinationClient {
	return NewDestinationClient(&config.DestinationConfig{
		URL:        url + "/rest/v1",
		APIKey:     "service-key",
		Schema:     "sales",
		Table:      "opportunity",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})
}

func checkDestinationHeaders(t *testing.T, r *http.Request, withBody bool) {
	t.Helper()
	checkStringEqual(t, "apikey", r.Header.Get("apikey"), "service-key")
	checkStringEqual(t, "Authorization", r.Header.Get("Authorization"), "Bearer service-key")
	checkStringEqual(t, "Accept-Profile", r.Header.Get("Accept-Profile"), "sales")
	if withBody {
		checkStringEqual(t, "Content-Profile", r.Header.Get("Content-Profile"), "sales")
		checkStringEqual(t, "Content-Type", r.Header.Get("Content-Type"), "application/json")
	}
}

func TestDestinationClient_ExistsFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkDestinationHeaders(t, r, false)
		checkStringEqual(t, "method", r.Method, http.MethodGet)
		checkStringEqual(t, "path", r.URL.Path, "/rest/v1/opportunity")
		checkStringEqual(t, "id filter", r.URL.Query().Get("id"), "eq.100")
		checkStringEqual(t, "select", r.URL.Query().Get("select"), "id,update_date")
		_, _ = w.Write([]byte(`[{"id": 100, "update_date": "2024-01-01T10:00:00+00:00"}]`))
	}))
	defer server.Close()

	existing, err := newTestDestinationClient(server.URL).Exists(context.Background(), 100)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if existing == nil {
		t.Fatal("expected a row")
	}
	checkStringPtrEqual(t, "update_date", existing.UpdateDate, "2024-01-01T10:00:00+00:00")
}

func TestDestinationClient_ExistsAbsent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	existing, err := newTestDestinationClient(server.URL).Exists(context.Background(), 100)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if existing != nil {
		t.Errorf("expected nil for an absent row, got %+v", existing)
	}
}

func TestDestinationClient_ExistsFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	existing, err := newTestDestinationClient(server.URL).Exists(context.Background(), 100)
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if existing != nil {
		t.Error("a failed lookup must not report a row")
	}
}

func TestDestinationClient_Insert(t *testing.T) {
	t.Parallel()

	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkDestinationHeaders(t, r, true)
		checkStringEqual(t, "method", r.Method, http.MethodPost)
		checkStringEqual(t, "path", r.URL.Path, "/rest/v1/opportunity")
		checkStringEqual(t, "Prefer", r.Header.Get("Prefer"), "return=minimal")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	rec := &models.Opportunity{ID: 100, FunnelID: 4, Value: 1234.56, SyncedAt: time.Now().UTC()}
	res := newTestDestinationClient(server.URL).Insert(context.Background(), rec)
	if !res.Success || res.Err != nil {
		t.Fatalf("expected success, got %+v", res)
	}
	checkIntEqual(t, "status", res.StatusCode, http.StatusCreated)
	if payload["id"] != 100.0 || payload["value"] != 1234.56 {
		t.Errorf("unexpected payload %v", payload)
	}
	if v, ok := payload["title"]; !ok || v != nil {
		t.Errorf("title must be an explicit null, got %v (present=%v)", v, ok)
	}
}

func TestDestinationClient_Update(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkDestinationHeaders(t, r, true)
		checkStringEqual(t, "method", r.Method, http.MethodPatch)
		checkStringEqual(t, "id filter", r.URL.Query().Get("id"), "eq.100")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	res := newTestDestinationClient(server.URL).Update(context.Background(), 100, &models.Opportunity{ID: 100})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	checkIntEqual(t, "status", res.StatusCode, http.StatusNoContent)
}

func TestDestinationClient_WriteFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"23505"}`, http.StatusConflict)
	}))
	defer server.Close()

	res := newTestDestinationClient(server.URL).Insert(context.Background(), &models.Opportunity{ID: 1})
	if res.Success {
		t.Fatal("expected failure")
	}
	checkIntEqual(t, "status", res.StatusCode, http.StatusConflict)
	var statusErr *HTTPStatusError
	if !errors.As(res.Err, &statusErr) {
		t.Errorf("expected HTTPStatusError, got %v", res.Err)
	}
}

func TestDestinationClient_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	res := newTestDestinationClient(url).Update(context.Background(), 1, &models.Opportunity{ID: 1})
	if res.Success || res.Err == nil {
		t.Fatalf("expected transport error, got %+v", res)
	}
	checkIntEqual(t, "status", res.StatusCode, 0)
}
