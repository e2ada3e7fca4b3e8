package shared

import (
	"errors"
	"time"
)

var (
	ErrInvalidEventType   = errors.New("invalid payment event type")
	ErrMissingEventID     = errors.New("event id is required")
	ErrMissingExternalRef = errors.New("external reference is required")
)

// PaymentEvent defines a Kafka message carrying a processor webhook event
type PaymentEvent struct {
	EventID           string           `json:"event_id"`
	Type              PaymentEventType `json:"type"`
	ExternalReference string           `json:"external_reference"`
	Amount            int64            `json:"amount"` // Stored in cents/minor units
	Currency          string           `json:"currency"`
	FailureReason     string           `json:"failure_reason,omitempty"`
	CorrelationID     string           `json:"correlation_id"`
	OccurredAt        time.Time        `json:"occurred_at"`
}

// Validate checks the fields every downstream consumer depends on
func (e *PaymentEvent) Validate() error {
	if e.EventID == "" {
		return ErrMissingEventID
	}
	if e.ExternalReference == "" {
		return ErrMissingExternalRef
	}
	switch e.Type {
	case PaymentEventTypeSucceeded, PaymentEventTypeFailed, PaymentEventTypeRefunded:
		return nil
	default:
		return ErrInvalidEventType
	}
}

// TargetStatus maps the event type onto the transaction status it drives
func (e *PaymentEvent) TargetStatus() TransactionStatus {
	switch e.Type {
	case PaymentEventTypeSucceeded:
		return TransactionStatusSucceeded
	case PaymentEventTypeFailed:
		return TransactionStatusFailed
	case PaymentEventTypeRefunded:
		return TransactionStatusRefunded
	default:
		return ""
	}
}
