// Package reconciler matches the external processor's ledger against the
// internal transaction ledger and records the outcome as an auditable run.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/handyhub-payment-engine/internal/config"
	"github.com/handyhub-payment-engine/internal/domain/reconciliation"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
)

const defaultPageSize = 500

// Engine executes reconciliation runs. A run covers one UTC day: every
// processor record and every internal transaction created that day is
// classified as matched or as a discrepancy, and the result is persisted
// whether the run completes or fails.
type Engine struct {
	runs          reconciliation.Repository
	transactions  transaction.Repository
	ledger        ExternalLedger
	alerter       Alerter
	pageSize      int
	diffThreshold int64
	logger        *slog.Logger
}

// NewEngine creates a reconciliation engine
func NewEngine(
	logger *slog.Logger,
	cfg *config.ReconciliationConfig,
	runs reconciliation.Repository,
	transactions transaction.Repository,
	ledger ExternalLedger,
	alerter Alerter,
) *Engine {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Engine{
		runs:          runs,
		transactions:  transactions,
		ledger:        ledger,
		alerter:       alerter,
		pageSize:      pageSize,
		diffThreshold: cfg.CriticalDiffThreshold,
		logger:        logger,
	}
}

type matchOutcome struct {
	matched         int
	unmatched       int
	totalReconciled int64
	discrepancies   []reconciliation.Discrepancy
}

// Reconcile produces the accounting for (runDate, runType). When a non-failed
// run already covers the pair and force is not set, that run is returned
// unchanged. A forced or retried execution is stored as the next revision, so
// earlier results stay on record.
func (e *Engine) Reconcile(ctx context.Context, runDate string, runType shared.RunType, force bool, triggeredBy string) (*reconciliation.Run, error) {
	if _, err := time.ParseInLocation(reconciliation.DateFormat, runDate, time.UTC); err != nil {
		return nil, fmt.Errorf("invalid run date %q: %w", runDate, err)
	}

	latest, err := e.runs.GetLatestByDateAndType(ctx, runDate, runType)
	if err != nil {
		return nil, fmt.Errorf("failed to look up previous run: %w", err)
	}
	if latest != nil && latest.Blocking() && !force {
		e.logger.Info("Reconciliation already covered, returning existing run",
			"run_date", runDate,
			"run_type", string(runType),
			"run_id", latest.ID.String(),
			"status", string(latest.Status))
		return latest, nil
	}

	revision := 1
	if latest != nil {
		revision = latest.Revision + 1
	}
	run := reconciliation.NewRun(runDate, runType, revision, triggeredBy)

	if err := e.runs.Create(ctx, run); err != nil {
		// Concurrent trigger for the same pair: the unique index picks one
		// winner, everyone else adopts its run.
		if errors.Is(err, reconciliation.ErrDuplicateRun{}) {
			winner, lookupErr := e.runs.GetLatestByDateAndType(ctx, runDate, runType)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to resolve concurrent run: %w", lookupErr)
			}
			if winner != nil {
				e.logger.Info("Lost run creation race, adopting concurrent run",
					"run_date", runDate,
					"run_id", winner.ID.String())
				return winner, nil
			}
		}
		return nil, fmt.Errorf("failed to create reconciliation run: %w", err)
	}

	e.logger.Info("Reconciliation run started",
		"run_id", run.ID.String(),
		"run_date", runDate,
		"run_type", string(runType),
		"revision", revision,
		"triggered_by", triggeredBy)

	outcome, err := e.match(ctx, run)
	if err != nil {
		e.failRun(ctx, run, err)
		return nil, err
	}

	run.Complete(outcome.matched, outcome.unmatched, outcome.totalReconciled, outcome.discrepancies)
	if err := e.runs.Complete(ctx, run); err != nil {
		err = fmt.Errorf("failed to persist run result: %w", err)
		e.failRun(ctx, run, err)
		return nil, err
	}

	e.logger.Info("Reconciliation run completed",
		"run_id", run.ID.String(),
		"run_date", runDate,
		"matched_count", run.MatchedCount,
		"unmatched_count", run.UnmatchedCount,
		"discrepancy_count", len(run.Discrepancies),
		"critical_count", run.CriticalCount(),
		"total_reconciled", run.TotalReconciled)

	if criticals := run.CriticalCount(); criticals > 0 {
		e.alerter.Notify(ctx, run, fmt.Sprintf("critical discrepancies: %d", criticals))
	}
	return run, nil
}

// match executes the comparison for a running run: full external drain, paged
// internal window read, then classification keyed by external reference.
func (e *Engine) match(ctx context.Context, run *reconciliation.Run) (*matchOutcome, error) {
	start, end, err := run.Window()
	if err != nil {
		return nil, err
	}

	external, err := e.ledger.ListTransactions(ctx, start, end)
	if err != nil {
		return nil, err
	}
	externalByRef := make(map[string]int64, len(external))
	for _, record := range external {
		externalByRef[record.ID] = record.Amount
	}

	internalByRef := make(map[string]int64)
	outcome := &matchOutcome{discrepancies: []reconciliation.Discrepancy{}}
	for offset := 0; ; offset += e.pageSize {
		page, err := e.transactions.FindByWindow(ctx, start, end, e.pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, txn := range page {
			if txn.ExternalReference == "" {
				// Never authorized: counted, but not a ledger disagreement
				outcome.unmatched++
				continue
			}
			internalByRef[txn.ExternalReference] = txn.Amount
		}
		if len(page) < e.pageSize {
			break
		}
	}

	externalRefs := make([]string, 0, len(externalByRef))
	for ref := range externalByRef {
		externalRefs = append(externalRefs, ref)
	}
	sort.Strings(externalRefs)

	for _, ref := range externalRefs {
		externalAmount := externalByRef[ref]
		internalAmount, found := internalByRef[ref]
		if !found {
			outcome.discrepancies = append(outcome.discrepancies, reconciliation.Discrepancy{
				Type:              shared.DiscrepancyTypeMissingInDB,
				ExternalReference: ref,
				ExternalAmount:    externalAmount,
				Difference:        externalAmount,
				Severity:          shared.SeverityCritical,
			})
			continue
		}
		if externalAmount == internalAmount {
			outcome.matched++
			outcome.totalReconciled += externalAmount
			continue
		}
		difference := externalAmount - internalAmount
		if difference < 0 {
			difference = -difference
		}
		outcome.discrepancies = append(outcome.discrepancies, reconciliation.Discrepancy{
			Type:              shared.DiscrepancyTypeAmountMismatch,
			ExternalReference: ref,
			ExternalAmount:    externalAmount,
			InternalAmount:    internalAmount,
			Difference:        difference,
			Severity:          e.grade(difference),
		})
	}

	internalOnly := make([]string, 0)
	for ref := range internalByRef {
		if _, found := externalByRef[ref]; !found {
			internalOnly = append(internalOnly, ref)
		}
	}
	sort.Strings(internalOnly)

	for _, ref := range internalOnly {
		internalAmount := internalByRef[ref]
		outcome.discrepancies = append(outcome.discrepancies, reconciliation.Discrepancy{
			Type:              shared.DiscrepancyTypeMissingInProcessor,
			ExternalReference: ref,
			InternalAmount:    internalAmount,
			Difference:        internalAmount,
			Severity:          e.grade(internalAmount),
		})
	}
	return outcome, nil
}

// grade classifies a money difference; missing_in_db is always critical and
// never goes through here
func (e *Engine) grade(difference int64) shared.DiscrepancySeverity {
	if difference > e.diffThreshold {
		return shared.SeverityCritical
	}
	return shared.SeverityWarning
}

// failRun records the failure on the run and raises the operator alert. The
// run document is kept so the failure is auditable and a retry stays possible.
func (e *Engine) failRun(ctx context.Context, run *reconciliation.Run, cause error) {
	e.logger.Error("Reconciliation run failed",
		"run_id", run.ID.String(),
		"run_date", run.RunDate,
		"error", cause)

	if err := e.runs.Fail(ctx, run.ID, cause.Error()); err != nil {
		e.logger.Error("Failed to record run failure",
			"run_id", run.ID.String(),
			"error", err)
	}
	run.Fail(cause.Error())
	e.alerter.Notify(ctx, run, "run failed: "+cause.Error())
}
