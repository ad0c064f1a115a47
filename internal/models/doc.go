// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

/*
Package models defines the data types shared across Funnelsync.

Source and destination records:
  - SourceOpportunity: an opportunity as served by the CRM (camelCase JSON)
  - Opportunity: the flat reporting-store row keyed by the CRM id (snake_case JSON)
  - ExistingOpportunity: the id/update_date projection used for change detection

Configuration:
  - StageDescriptor: one funnel and its ordered stage ids

Runs:
  - Mode: full, incremental ([Since, Until) on creation date) or dry_run
  - RunResult: mutable per-run counters and errors owned by the orchestrator
  - RunSummary: the finalized, immutable view handed to the scheduler, the
    run history store and the control API

Control API:
  - APIResponse, Metadata, APIError: response envelope
  - RunRequest, RunAccepted: POST /api/v1/sync/run body and reply
*/
package models
