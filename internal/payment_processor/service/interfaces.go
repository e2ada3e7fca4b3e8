package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
)

// ProcessingService defines the interface for applying payment events.
type ProcessingService interface {
	ProcessPaymentEvent(ctx context.Context, event *shared.PaymentEvent) error
}

// EventValidator validates payment events before processing
type EventValidator interface {
	Validate(ctx context.Context, event *shared.PaymentEvent) error
}

// TransitionApplier locks the transaction behind an event's external reference
// and applies the status change, together with the booking status it implies
type TransitionApplier interface {
	ApplyTransition(ctx context.Context, tx pgx.Tx, event *shared.PaymentEvent) (*transaction.Transaction, error)
}

// TxRunner runs a function inside one database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}
