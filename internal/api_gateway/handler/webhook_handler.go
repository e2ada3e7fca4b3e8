package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/handyhub-payment-engine/internal/api_gateway/middleware"
	"github.com/handyhub-payment-engine/internal/api_gateway/service"
	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// WebhookHandler receives payment status events from the external processor
type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// eventTypeFromWebhook maps the processor's event names onto internal types
var eventTypeFromWebhook = map[string]shared.PaymentEventType{
	"payment.succeeded": shared.PaymentEventTypeSucceeded,
	"payment.failed":    shared.PaymentEventTypeFailed,
	"payment.refunded":  shared.PaymentEventTypeRefunded,
}

// HandlePaymentEvent validates an inbound processor event and queues it for
// the payment processor. The response is 202: the state transition happens
// asynchronously and redelivery of the same event is harmless.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	var req PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid webhook payload", "error", err)
		RespondBadRequest(c, "Invalid webhook payload: "+err.Error())
		return
	}

	eventType, ok := eventTypeFromWebhook[req.EventType]
	if !ok {
		h.logger.Error("Unknown webhook event type", "event_type", req.EventType)
		RespondBadRequest(c, "Unknown event type: "+req.EventType)
		return
	}

	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	event := &shared.PaymentEvent{
		EventID:           req.EventID,
		Type:              eventType,
		ExternalReference: req.ExternalReference,
		Amount:            req.Amount,
		Currency:          req.Currency,
		FailureReason:     req.FailureReason,
		CorrelationID:     middleware.GetCorrelationID(c),
		OccurredAt:        occurredAt,
	}

	if err := h.webhookService.IngestPaymentEvent(c.Request.Context(), event); err != nil {
		h.logger.Error("Failed to ingest payment event",
			"event_id", req.EventID,
			"external_reference", req.ExternalReference,
			"error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"event_id": req.EventID,
		"status":   "QUEUED",
	})
}
