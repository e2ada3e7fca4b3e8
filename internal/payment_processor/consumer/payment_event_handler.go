package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/payment_processor/service"
	"github.com/handyhub-payment-engine/internal/platform/messaging/producers"
)

// PaymentEventHandler handles incoming payment event messages from Kafka
type PaymentEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewPaymentEventHandler creates a new handler
func NewPaymentEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.PaymentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal payment event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received payment event for processing",
		"event_id", event.EventID,
		"event_type", string(event.Type),
		"external_reference", event.ExternalReference,
		"amount", event.Amount,
	)

	if err := h.processingService.ProcessPaymentEvent(ctx, &event); err != nil {
		logger.Error("Failed to process payment event",
			"event_id", event.EventID,
			"external_reference", event.ExternalReference,
			"error", err,
		)
		return fmt.Errorf("processing payment event %s failed: %w", event.EventID, err)
	}

	logger.Info("Successfully processed payment event", "event_id", event.EventID)
	return nil // Success, commit offset
}
