// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

/*
Package sync replicates CRM opportunities into the reporting store.

One run walks every configured funnel and, inside it, every stage in order:

	Orchestrator
	  └─ for each funnel, for each stage
	       └─ CRMClient.FetchPage (paced, paginated until a short page)
	            └─ for each record
	                 FieldMapper.Map → DestinationClient.Exists → Decide
	                   → DestinationClient.Insert / Update (skipped in dry_run)
	  └─ Finalize → models.RunSummary

Key Components:

  - CRMClient: POST /crm/opportunities/{funnelId} with page/limit/columnId,
    exponential backoff on HTTP 429, optional gobreaker wrapper
  - FieldMapper: pure SourceOpportunity → Opportunity flattening, with locale
    money parsing, multi-layout date parsing and a declarative FieldTable
  - Decide: insert when absent, update only when the source updateDate is
    strictly newer, otherwise skip
  - DestinationClient: PostgREST single-record Exists/Insert/Update
  - Pacer: flat minimum spacing between calls (golang.org/x/time/rate)
  - Finalize: sums stage counters into run totals

Failure policy:

Record-level failures (mapping, lookup, write) are recorded and the next
record is processed. A pagination failure aborts only its stage. Nothing in
a run is fatal; a run always yields a RunResult.

Cancellation:

Stage I/O runs on a context detached from cancellation. When the caller's
context is cancelled the current stage finishes and remaining stages are
skipped, with RunResult.Cancelled set.
*/
package sync
