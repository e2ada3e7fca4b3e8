package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/handyhub-payment-engine/internal/domain/booking"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
	"github.com/handyhub-payment-engine/internal/payment_processor/service"
)

// TransitionApplierImpl implements the TransitionApplier interface
type TransitionApplierImpl struct {
	transactionRepo transaction.Repository
	bookingRepo     booking.Repository
	logger          *slog.Logger
}

// NewTransitionApplier creates a new TransitionApplierImpl
func NewTransitionApplier(transactionRepo transaction.Repository, bookingRepo booking.Repository, logger *slog.Logger) service.TransitionApplier {
	return &TransitionApplierImpl{
		transactionRepo: transactionRepo,
		bookingRepo:     bookingRepo,
		logger:          logger,
	}
}

// ApplyTransition locks the transaction for the event's external reference,
// applies the status change, and moves the booking with it. Re-delivering the
// transaction's current status is a no-op.
func (a *TransitionApplierImpl) ApplyTransition(ctx context.Context, tx pgx.Tx, event *shared.PaymentEvent) (*transaction.Transaction, error) {
	logger := a.logger
	if event.CorrelationID != "" {
		logger = a.logger.With("correlation_id", event.CorrelationID)
	}

	transactionRepoTx := a.transactionRepo.WithTx(tx)

	// Lock the transaction row so concurrent events for the same payment
	// serialize here
	txn, err := transactionRepoTx.LockByExternalReference(ctx, event.ExternalReference)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			return nil, err
		}
		logger.Error("Failed to lock transaction",
			"event_id", event.EventID,
			"external_reference", event.ExternalReference,
			"error", err)
		return nil, fmt.Errorf("failed to lock transaction for %s: %w", event.ExternalReference, err)
	}
	logger.Info("Transaction locked",
		"event_id", event.EventID,
		"transaction_id", txn.ID.String(),
		"status", string(txn.Status))

	if event.Amount != 0 && event.Amount != txn.Amount {
		logger.Warn("Event amount differs from recorded transaction",
			"event_id", event.EventID,
			"transaction_id", txn.ID.String(),
			"event_amount", event.Amount,
			"transaction_amount", txn.Amount)
	}

	changed, err := txn.ApplyStatus(event.TargetStatus(), event.FailureReason)
	if err != nil {
		return nil, err
	}
	if !changed {
		logger.Info("Duplicate payment event, nothing to apply",
			"event_id", event.EventID,
			"transaction_id", txn.ID.String(),
			"status", string(txn.Status))
		return txn, nil
	}

	if err := transactionRepoTx.UpdateStatus(ctx, txn.ID, txn.Status, txn.ExternalReference, txn.FailureReason); err != nil {
		logger.Error("Failed to update transaction status",
			"event_id", event.EventID,
			"transaction_id", txn.ID.String(),
			"error", err)
		return nil, err
	}

	if bookingStatus, ok := bookingStatusFor(txn.Status); ok {
		if err := a.bookingRepo.WithTx(tx).UpdateStatus(ctx, txn.BookingID, bookingStatus); err != nil {
			logger.Error("Failed to update booking status",
				"event_id", event.EventID,
				"booking_id", txn.BookingID.String(),
				"error", err)
			return nil, err
		}
	}

	logger.Info("Transaction status applied",
		"event_id", event.EventID,
		"transaction_id", txn.ID.String(),
		"booking_id", txn.BookingID.String(),
		"status", string(txn.Status))
	return txn, nil
}

// bookingStatusFor maps a transaction status onto the booking status it drives
func bookingStatusFor(status shared.TransactionStatus) (shared.BookingStatus, bool) {
	switch status {
	case shared.TransactionStatusSucceeded:
		return shared.BookingStatusConfirmed, true
	case shared.TransactionStatusFailed, shared.TransactionStatusRefunded:
		return shared.BookingStatusCancelled, true
	default:
		return "", false
	}
}
