// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/funnelsync/internal/logging"
	"github.com/tomtom215/funnelsync/internal/metrics"
	"github.com/tomtom215/funnelsync/internal/models"
)

// Orchestrator drives one run: every stage of every funnel, page by page,
// record by record. It is strictly sequential; callers must not start two
// runs on the same Orchestrator concurrently.
type Orchestrator struct {
	source      SourceClient
	dest        DestinationWriter
	mapper      *FieldMapper
	sourcePacer Waiter
	destPacer   Waiter
	pageSize    int

	now      func() time.Time
	newRunID func() string
}

// NewOrchestrator wires the pipeline. Nil pacers disable pacing.
func NewOrchestrator(source SourceClient, dest DestinationWriter, mapper *FieldMapper, sourcePacer, destPacer Waiter, pageSize int) (*Orchestrator, error) {
	if err := validatePageSize(pageSize); err != nil {
		return nil, err
	}
	if source == nil || dest == nil {
		return nil, errors.New("orchestrator requires a source and a destination")
	}
	if mapper == nil {
		mapper = NewFieldMapper(nil)
	}
	if sourcePacer == nil {
		sourcePacer = NewPacer("source", 0)
	}
	if destPacer == nil {
		destPacer = NewPacer("destination", 0)
	}

	return &Orchestrator{
		source:      source,
		dest:        dest,
		mapper:      mapper,
		sourcePacer: sourcePacer,
		destPacer:   destPacer,
		pageSize:    pageSize,
		now:         time.Now,
		newRunID:    func() string { return uuid.New().String() },
	}, nil
}

// Execute runs and finalizes in one call.
func (o *Orchestrator) Execute(ctx context.Context, stages []models.StageDescriptor, mode models.Mode) models.RunSummary {
	return Finalize(o.Run(ctx, stages, mode))
}

// Run synchronizes every stage of every descriptor in order and returns the
// run record. It never returns an error: failures are recorded in the
// result and processing continues with the next record or stage.
//
// Cancelling ctx lets the stage in progress finish and skips the rest.
func (o *Orchestrator) Run(ctx context.Context, stages []models.StageDescriptor, mode models.Mode) *models.RunResult {
	result := models.NewRunResult(o.newRunID(), mode, o.now().UTC())

	ctx = logging.ContextWithRunID(ctx, result.RunID)
	// Stage I/O is not interrupted mid-stage.
	ioCtx := context.WithoutCancel(ctx)
	logger := logging.Ctx(ctx)

	logger.Info().
		Str("mode", string(mode.Kind)).
		Int("funnels", len(stages)).
		Msg("Sync run started")

stageLoop:
	for i := range stages {
		desc := &stages[i]
		for _, stageID := range desc.StageIDs {
			if ctx.Err() != nil {
				result.Cancelled = true
				logger.Warn().Int64("stage_id", stageID).Msg("Sync run cancelled, skipping remaining stages")
				break stageLoop
			}
			o.runStage(ioCtx, logger, result, desc.FunnelID, stageID, mode)
		}
	}

	result.FinishedAt = o.now().UTC()

	logger.Info().
		Int("stages", len(result.StageOrder)).
		Int("errors", len(result.Errors)).
		Bool("cancelled", result.Cancelled).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Sync run finished")

	return result
}

// runStage paginates one stage to its end. A page shorter than pageSize is
// the last one; a fetch error aborts the stage and keeps what was processed.
func (o *Orchestrator) runStage(ctx context.Context, logger *zerolog.Logger, result *models.RunResult, funnelID, stageID int64, mode models.Mode) {
	counters := result.Stage(funnelID, stageID)

	for page := 0; ; page++ {
		if err := o.sourcePacer.Wait(ctx); err != nil {
			o.recordError(result, stageID, models.RunError{Kind: models.ErrorKindPagination, Message: err.Error()})
			break
		}

		counters.Pages++
		metrics.RecordPage()
		records, err := o.source.FetchPage(ctx, funnelID, stageID, page, o.pageSize)
		if err != nil {
			logger.Error().Err(err).
				Int64("funnel_id", funnelID).
				Int64("stage_id", stageID).
				Int("page", page).
				Msg("Page fetch failed, aborting stage")
			o.recordError(result, stageID, models.RunError{Kind: models.ErrorKindPagination, Message: err.Error()})
			break
		}

		for j := range records {
			o.processRecord(ctx, result, counters, funnelID, stageID, &records[j], mode)
		}

		if len(records) < o.pageSize {
			break
		}
	}

	logger.Info().
		Int64("funnel_id", funnelID).
		Int64("stage_id", stageID).
		Int("pages", counters.Pages).
		Int("found", counters.Found).
		Int("filtered", counters.Filtered).
		Int("inserted", counters.Inserted).
		Int("updated", counters.Updated).
		Int("skipped", counters.Skipped).
		Int("errors", counters.Errors).
		Bool("aborted", counters.Aborted).
		Msg("Stage synchronized")
}

func (o *Orchestrator) processRecord(ctx context.Context, result *models.RunResult, counters *models.StageCounters, funnelID, stageID int64, src *models.SourceOpportunity, mode models.Mode) {
	counters.Found++

	if mode.Kind == models.ModeIncremental {
		created := parseDate(src.CreateDate)
		if created == nil || !mode.InWindow(*created) {
			counters.Filtered++
			metrics.RecordDecision(stageID, "filtered")
			return
		}
	}

	rec, err := o.mapper.Map(src, funnelID, o.now())
	if err != nil {
		o.recordError(result, stageID, opportunityError(src, models.ErrorKindMapping, err))
		return
	}

	if err := o.destPacer.Wait(ctx); err != nil {
		o.recordError(result, stageID, opportunityError(src, models.ErrorKindLookup, err))
		return
	}
	existing, err := o.dest.Exists(ctx, rec.ID)
	if err != nil {
		o.recordError(result, stageID, opportunityError(src, models.ErrorKindLookup, err))
		return
	}

	decision := Decide(src, existing)
	if decision != DecisionSkip && mode.Writes() {
		if err := o.write(ctx, decision, rec); err != nil {
			o.recordError(result, stageID, opportunityError(src, models.ErrorKindWrite, err))
			return
		}
	}

	switch decision {
	case DecisionInsert:
		counters.Inserted++
	case DecisionUpdate:
		counters.Updated++
	default:
		counters.Skipped++
	}
	metrics.RecordDecision(stageID, decision.String())
}

func (o *Orchestrator) write(ctx context.Context, decision Decision, rec *models.Opportunity) error {
	if err := o.destPacer.Wait(ctx); err != nil {
		return err
	}

	var res Result
	if decision == DecisionInsert {
		res = o.dest.Insert(ctx, rec)
	} else {
		res = o.dest.Update(ctx, rec.ID, rec)
	}

	if res.Success {
		return nil
	}
	if res.Err != nil {
		return res.Err
	}
	return &HTTPStatusError{Op: decision.String(), StatusCode: res.StatusCode}
}

func (o *Orchestrator) recordError(result *models.RunResult, stageID int64, e models.RunError) {
	result.AddError(stageID, e)
	metrics.RecordError(e.Kind)
	if e.Kind != models.ErrorKindPagination {
		metrics.RecordDecision(stageID, "error")
	}
}

func opportunityError(src *models.SourceOpportunity, kind string, err error) models.RunError {
	return models.RunError{
		RecordID: src.ID,
		Title:    src.Title,
		Kind:     kind,
		Message:  err.Error(),
	}
}
