package service

import (
	"context"
	"log/slog"

	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/platform/messaging/producers"
)

// WebhookServiceImpl implements the WebhookService interface
type WebhookServiceImpl struct {
	producer producers.MessagePublisher
	logger   *slog.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(logger *slog.Logger, producer producers.MessagePublisher) WebhookService {
	return &WebhookServiceImpl{
		producer: producer,
		logger:   logger,
	}
}

// IngestPaymentEvent validates a processor event and hands it to the
// processing pipeline. Events are keyed by external reference so updates
// for one payment stay ordered.
func (s *WebhookServiceImpl) IngestPaymentEvent(ctx context.Context, event *shared.PaymentEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if err := s.producer.Publish(ctx, event.ExternalReference, event); err != nil {
		s.logger.Error("Failed to publish payment event",
			"event_id", event.EventID,
			"event_type", string(event.Type),
			"external_reference", event.ExternalReference,
			"error", err)
		return err
	}

	s.logger.Info("Payment event accepted",
		"event_id", event.EventID,
		"event_type", string(event.Type),
		"external_reference", event.ExternalReference)
	return nil
}
