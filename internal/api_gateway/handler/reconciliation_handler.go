package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/api_gateway/service"
	"github.com/handyhub-payment-engine/internal/domain/reconciliation"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/platform/processor"
)

// ReconciliationHandler exposes run triggering and lookups to operators
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// TriggerRun executes reconciliation for a target date. Re-triggering a
// completed date returns the existing run unchanged unless force is set.
func (h *ReconciliationHandler) TriggerRun(c *gin.Context) {
	var req TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if _, err := time.ParseInLocation(reconciliation.DateFormat, req.Date, time.UTC); err != nil {
		h.logger.Error("Invalid run date", "date", req.Date, "error", err)
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	run, err := h.reconciliationService.TriggerRun(
		c.Request.Context(),
		req.Date,
		shared.RunType(req.RunType),
		req.Force,
		"api",
	)
	if err != nil {
		var fetchErr *processor.LedgerFetchError
		if errors.As(err, &fetchErr) {
			h.logger.Error("Reconciliation aborted on ledger fetch", "date", req.Date, "error", err)
			RespondWithError(c, http.StatusBadGateway, "LEDGER_FETCH_FAILED",
				"External ledger could not be read, run marked failed")
			return
		}
		h.logger.Error("Reconciliation run failed", "date", req.Date, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapRunToResponse(run))
}

// GetRunByID retrieves a reconciliation run, returns 404 if not found
func (h *ReconciliationHandler) GetRunByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid run ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.reconciliationService.GetRunByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get reconciliation run", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}
	if run == nil {
		RespondNotFound(c, "Reconciliation run not found")
		return
	}

	RespondOK(c, mapRunToResponse(run))
}

// ListRuns retrieves paginated runs whose run date falls in [from, to]
func (h *ReconciliationHandler) ListRuns(c *gin.Context) {
	var params ListRunsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid list parameters", "error", err)
		RespondBadRequest(c, "Invalid list parameters: "+err.Error())
		return
	}

	for _, date := range []string{params.From, params.To} {
		if _, err := time.ParseInLocation(reconciliation.DateFormat, date, time.UTC); err != nil {
			RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
	}

	runs, err := h.reconciliationService.ListRuns(c.Request.Context(), params.From, params.To, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list reconciliation runs", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, mapRunToResponse(run))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, len(responses))
}

// mapRunToResponse maps a reconciliation run to its response DTO
func mapRunToResponse(run *reconciliation.Run) RunResponse {
	discrepancies := make([]DiscrepancyResponse, 0, len(run.Discrepancies))
	for _, d := range run.Discrepancies {
		discrepancies = append(discrepancies, DiscrepancyResponse{
			Type:              string(d.Type),
			ExternalReference: d.ExternalReference,
			ExternalAmount:    d.ExternalAmount,
			InternalAmount:    d.InternalAmount,
			Difference:        d.Difference,
			Severity:          string(d.Severity),
		})
	}

	response := RunResponse{
		RunID:           run.ID.String(),
		RunDate:         run.RunDate,
		RunType:         string(run.RunType),
		Revision:        run.Revision,
		Status:          string(run.Status),
		Matched:         run.MatchedCount,
		Unmatched:       run.UnmatchedCount,
		TotalReconciled: run.TotalReconciled,
		Discrepancies:   discrepancies,
		TriggeredBy:     run.TriggeredBy,
		ErrorMessage:    run.ErrorMessage,
		StartedAt:       run.StartedAt.Format(time.RFC3339),
	}

	if run.CompletedAt != nil {
		response.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}

	return response
}
