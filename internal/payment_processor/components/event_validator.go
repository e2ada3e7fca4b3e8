package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/payment_processor/service"
)

// ErrNegativeEventAmount indicates a processor event carrying a negative amount
var ErrNegativeEventAmount = errors.New("event amount must not be negative")

// EventValidatorImpl implements the EventValidator interface
type EventValidatorImpl struct {
	logger *slog.Logger
}

// NewEventValidator creates a new EventValidatorImpl
func NewEventValidator(logger *slog.Logger) service.EventValidator {
	return &EventValidatorImpl{
		logger: logger,
	}
}

// Validate checks the event fields the transition applier depends on. The
// webhook handler already validated events it accepted; this guards against
// messages from other producers on the topic.
func (v *EventValidatorImpl) Validate(ctx context.Context, event *shared.PaymentEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.Amount < 0 {
		return ErrNegativeEventAmount
	}
	return nil
}
