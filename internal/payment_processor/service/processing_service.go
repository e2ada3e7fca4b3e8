package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
)

type ProcessingServiceImpl struct {
	db        TxRunner
	validator EventValidator
	applier   TransitionApplier
	logger    *slog.Logger
}

func NewProcessingService(
	db TxRunner,
	validator EventValidator,
	applier TransitionApplier,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		db:        db,
		validator: validator,
		applier:   applier,
		logger:    logger,
	}
}

// ProcessPaymentEvent applies one processor event to the internal ledger. The
// return value is the consumer's ack decision: nil acknowledges the message,
// an error leaves it on the topic for redelivery. Events that can never become
// processable are acknowledged so they don't wedge the partition.
func (s *ProcessingServiceImpl) ProcessPaymentEvent(ctx context.Context, event *shared.PaymentEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Processing payment event",
		"event_id", event.EventID,
		"event_type", string(event.Type),
		"external_reference", event.ExternalReference)

	if err := s.validator.Validate(ctx, event); err != nil {
		logger.Error("Payment event failed validation",
			"event_id", event.EventID,
			"error", err)
		return nil
	}

	var txn *transaction.Transaction
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var applyErr error
		txn, applyErr = s.applier.ApplyTransition(ctx, tx, event)
		return applyErr
	})
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			// Nothing local matches this payment; reconciliation surfaces it
			// as a discrepancy instead.
			logger.Warn("No transaction for external reference",
				"event_id", event.EventID,
				"external_reference", event.ExternalReference)
			return nil
		}
		if errors.Is(err, transaction.ErrInvalidStatusTransition{}) {
			logger.Warn("Skipped out-of-order payment event",
				"event_id", event.EventID,
				"external_reference", event.ExternalReference,
				"error", err)
			return nil
		}

		logger.Error("Failed to apply payment event",
			"event_id", event.EventID,
			"external_reference", event.ExternalReference,
			"error", err)
		return err
	}

	logger.Info("Payment event applied",
		"event_id", event.EventID,
		"transaction_id", txn.ID.String(),
		"status", string(txn.Status))
	return nil
}
