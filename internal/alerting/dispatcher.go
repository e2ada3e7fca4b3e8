// Package alerting delivers operator alerts for reconciliation runs that
// found critical discrepancies or failed outright.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/handyhub-payment-engine/internal/config"
	"github.com/handyhub-payment-engine/internal/domain/reconciliation"
)

// Dispatcher posts one alert per run to the operator webhook. Delivery is
// fire-and-forget: a failed post is logged and never fails the run that
// triggered it.
type Dispatcher struct {
	webhookURL       string
	dashboardBaseURL string
	httpClient       *http.Client
	runs             reconciliation.Repository
	logger           *slog.Logger
}

// NewDispatcher creates an alert dispatcher from configuration
func NewDispatcher(logger *slog.Logger, cfg *config.AlertingConfig, runs reconciliation.Repository) *Dispatcher {
	return &Dispatcher{
		webhookURL:       cfg.WebhookURL,
		dashboardBaseURL: strings.TrimRight(cfg.DashboardBaseURL, "/"),
		httpClient:       &http.Client{Timeout: cfg.RequestTimeout},
		runs:             runs,
		logger:           logger,
	}
}

type alertPayload struct {
	RunID            string `json:"run_id"`
	RunDate          string `json:"run_date"`
	RunType          string `json:"run_type"`
	Status           string `json:"status"`
	CriticalCount    int    `json:"critical_count"`
	DiscrepancyCount int    `json:"discrepancy_count"`
	Reason           string `json:"reason"`
	DashboardURL     string `json:"dashboard_url"`
	TriggeredAt      string `json:"triggered_at"`
}

// Notify sends the operator alert for a run. The alert slot is claimed in the
// run document first, so concurrent or repeated calls for the same run id
// produce at most one webhook post.
func (d *Dispatcher) Notify(ctx context.Context, run *reconciliation.Run, reason string) {
	claimed, err := d.runs.MarkAlerted(ctx, run.ID)
	if err != nil {
		d.logger.Error("Failed to claim alert slot, skipping alert",
			"run_id", run.ID.String(),
			"error", err)
		return
	}
	if !claimed {
		d.logger.Debug("Run already alerted, skipping",
			"run_id", run.ID.String())
		return
	}

	payload := alertPayload{
		RunID:            run.ID.String(),
		RunDate:          run.RunDate,
		RunType:          string(run.RunType),
		Status:           string(run.Status),
		CriticalCount:    run.CriticalCount(),
		DiscrepancyCount: len(run.Discrepancies),
		Reason:           reason,
		DashboardURL:     d.dashboardBaseURL + "/reconciliation/runs/" + run.ID.String(),
		TriggeredAt:      time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("Failed to encode alert payload",
			"run_id", run.ID.String(),
			"error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		d.logger.Error("Failed to build alert request",
			"run_id", run.ID.String(),
			"error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error("Failed to deliver operator alert",
			"run_id", run.ID.String(),
			"webhook_url", d.webhookURL,
			"error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.logger.Error("Operator alert rejected by webhook",
			"run_id", run.ID.String(),
			"status", resp.StatusCode)
		return
	}

	d.logger.Info("Operator alert delivered",
		"run_id", run.ID.String(),
		"run_date", run.RunDate,
		"critical_count", payload.CriticalCount,
		"reason", reason)
}
