package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/domain/reconciliation"
	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	engine RunTrigger
	runs   reconciliation.Repository
	logger *slog.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(logger *slog.Logger, engine RunTrigger, runs reconciliation.Repository) ReconciliationService {
	return &ReconciliationServiceImpl{
		engine: engine,
		runs:   runs,
		logger: logger,
	}
}

// TriggerRun executes reconciliation for the given date. An empty run type
// defaults to manual, which is what operator-triggered runs are.
func (s *ReconciliationServiceImpl) TriggerRun(ctx context.Context, runDate string, runType shared.RunType, force bool, triggeredBy string) (*reconciliation.Run, error) {
	if runType == "" {
		runType = shared.RunTypeManual
	}
	return s.engine.Reconcile(ctx, runDate, runType, force, triggeredBy)
}

// GetRunByID retrieves a run by its ID. Returns nil if not found
func (s *ReconciliationServiceImpl) GetRunByID(ctx context.Context, id uuid.UUID) (*reconciliation.Run, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reconciliation.ErrRunNotFound{}) {
			s.logger.Info("Reconciliation run not found", "run_id", id.String())
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

// ListRuns retrieves a page of runs whose run date falls in [fromDate, toDate]
func (s *ReconciliationServiceImpl) ListRuns(ctx context.Context, fromDate, toDate string, page, perPage int) ([]*reconciliation.Run, error) {
	offset := (page - 1) * perPage
	return s.runs.ListByDateRange(ctx, fromDate, toDate, perPage, offset)
}
