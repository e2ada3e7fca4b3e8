package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/handyhub-payment-engine/internal/domain/booking"
	"github.com/handyhub-payment-engine/internal/domain/fees"
	"github.com/handyhub-payment-engine/internal/domain/provider"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
	"github.com/handyhub-payment-engine/internal/platform/processor"
)

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	db              TxRunner
	bookingRepo     booking.Repository
	transactionRepo transaction.Repository
	providers       provider.Client
	gateway         ProcessorGateway
	calculator      *fees.Calculator
	logger          *slog.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	logger *slog.Logger,
	db TxRunner,
	bookingRepo booking.Repository,
	transactionRepo transaction.Repository,
	providers provider.Client,
	gateway ProcessorGateway,
	calculator *fees.Calculator,
) PaymentService {
	return &PaymentServiceImpl{
		db:              db,
		bookingRepo:     bookingRepo,
		transactionRepo: transactionRepo,
		providers:       providers,
		gateway:         gateway,
		calculator:      calculator,
		logger:          logger,
	}
}

// SetupPayment creates the booking and transaction rows, then authorizes the
// charge with the processor. The local rows are committed before the external
// call; if authorization fails while the setup is still pending, both rows are
// deleted again so a retry starts clean.
func (s *PaymentServiceImpl) SetupPayment(ctx context.Context, input *PaymentSetupInput) (*PaymentSetupResult, error) {
	breakdown, err := s.calculator.Calculate(input.ServiceAmount, input.GuestCheckout)
	if err != nil {
		return nil, err
	}

	onboarding, err := s.providers.GetOnboardingStatus(ctx, input.ProviderID)
	if err != nil {
		return nil, err
	}
	if !onboarding.PayoutCapable() {
		s.logger.Warn("Rejected checkout for provider without payout capability",
			"provider_id", input.ProviderID.String(),
			"connected_account_id", onboarding.ConnectedAccountID,
			"payouts_enabled", onboarding.PayoutsEnabled,
			"charges_enabled", onboarding.ChargesEnabled)
		return nil, provider.ErrProviderNotOnboarded{
			ProviderID: input.ProviderID,
			Reason:     "connected account is not payout capable",
		}
	}

	bk, txn, replayed, err := s.ensureLocalRows(ctx, input, breakdown)
	if err != nil {
		return nil, err
	}

	auth, err := s.gateway.AuthorizePayment(ctx, &processor.AuthorizationRequest{
		Amount:               breakdown.TotalAmount,
		Currency:             bk.Currency,
		ApplicationFeeAmount: breakdown.TotalPlatformFee,
		DestinationAccountID: onboarding.ConnectedAccountID,
		IdempotencyKey:       "booking-" + bk.ID.String(),
		Metadata: map[string]string{
			"booking_id":     bk.ID.String(),
			"correlation_id": input.CorrelationID,
		},
	})
	if err != nil {
		s.logger.Error("Payment authorization failed",
			"booking_id", bk.ID.String(),
			"provider_id", input.ProviderID.String(),
			"error", err)

		// Compensate only while the setup is still pending; a booking a
		// webhook already confirmed must not be deleted.
		if bk.Status == shared.BookingStatusPending {
			if rbErr := s.compensate(ctx, bk.ID); rbErr != nil {
				s.logger.Error("Failed to roll back payment setup",
					"booking_id", bk.ID.String(),
					"error", rbErr)
				return nil, &RollbackError{BookingID: bk.ID, Cause: err, Err: rbErr}
			}
			s.logger.Info("Rolled back payment setup after failed authorization",
				"booking_id", bk.ID.String())
		}
		return nil, err
	}

	// The reference write is best-effort: the charge already exists, so a
	// failure here is repaired by reconciliation rather than by voiding the
	// booking.
	if err := s.persistExternalReference(ctx, bk, txn, auth.ExternalReference); err != nil {
		s.logger.Error("Failed to persist external payment reference",
			"booking_id", bk.ID.String(),
			"external_reference", auth.ExternalReference,
			"error", err)
	}

	s.logger.Info("Payment setup completed",
		"booking_id", bk.ID.String(),
		"transaction_id", txn.ID.String(),
		"external_reference", auth.ExternalReference,
		"total_amount", breakdown.TotalAmount,
		"replayed", replayed)

	return &PaymentSetupResult{
		Booking:                 bk,
		Transaction:             txn,
		Breakdown:               breakdown,
		ClientConfirmationToken: auth.ClientConfirmationToken,
		Replayed:                replayed,
	}, nil
}

// ensureLocalRows loads the rows for a retried checkout or creates fresh ones
// in a single database transaction
func (s *PaymentServiceImpl) ensureLocalRows(ctx context.Context, input *PaymentSetupInput, breakdown fees.Breakdown) (*booking.Booking, *transaction.Transaction, bool, error) {
	if input.BookingID != uuid.Nil {
		bk, txn, err := s.loadExistingSetup(ctx, input)
		if err != nil {
			return nil, nil, false, err
		}
		if bk != nil {
			return bk, txn, true, nil
		}
	}

	bk, err := booking.NewBooking(input.BookingID, input.CustomerID, input.ProviderID, input.ServiceAmount, input.Currency, input.GuestCheckout)
	if err != nil {
		return nil, nil, false, err
	}
	txn, err := transaction.NewTransaction(bk.ID, breakdown.TotalAmount, breakdown.TotalPlatformFee, breakdown.ProviderPayout, input.Currency)
	if err != nil {
		return nil, nil, false, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.bookingRepo.WithTx(tx).Create(ctx, bk); err != nil {
			return err
		}
		return s.transactionRepo.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		// A concurrent retry with the same booking id won the insert; adopt
		// its rows.
		if errors.Is(err, booking.ErrDuplicateBooking{}) && input.BookingID != uuid.Nil {
			existing, existingTxn, loadErr := s.loadExistingSetup(ctx, input)
			if loadErr != nil {
				return nil, nil, false, loadErr
			}
			if existing != nil {
				return existing, existingTxn, true, nil
			}
		}
		return nil, nil, false, err
	}

	return bk, txn, false, nil
}

// loadExistingSetup fetches the booking and transaction for a retried checkout.
// Returns nil without error when the booking does not exist yet, and
// ErrCheckoutConflict when the retry does not match what was stored.
func (s *PaymentServiceImpl) loadExistingSetup(ctx context.Context, input *PaymentSetupInput) (*booking.Booking, *transaction.Transaction, error) {
	bk, err := s.bookingRepo.GetByID(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound{}) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	if bk.CustomerID != input.CustomerID ||
		bk.ProviderID != input.ProviderID ||
		bk.ServiceAmount != input.ServiceAmount ||
		bk.Currency != input.Currency ||
		bk.GuestCheckout != input.GuestCheckout {
		return nil, nil, ErrCheckoutConflict{BookingID: input.BookingID}
	}

	txn, err := s.transactionRepo.GetByBookingID(ctx, input.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if txn == nil {
		return nil, nil, fmt.Errorf("booking %s has no transaction record", input.BookingID.String())
	}

	s.logger.Info("Resuming existing payment setup",
		"booking_id", bk.ID.String(),
		"transaction_id", txn.ID.String(),
		"status", string(txn.Status))
	return bk, txn, nil
}

// compensate removes the booking and transaction rows created for a setup
// whose authorization failed
func (s *PaymentServiceImpl) compensate(ctx context.Context, bookingID uuid.UUID) error {
	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.transactionRepo.WithTx(tx).DeleteByBookingID(ctx, bookingID); err != nil {
			return err
		}
		return s.bookingRepo.WithTx(tx).Delete(ctx, bookingID)
	})
}

// persistExternalReference writes the processor's reference onto both rows
func (s *PaymentServiceImpl) persistExternalReference(ctx context.Context, bk *booking.Booking, txn *transaction.Transaction, ref string) error {
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.bookingRepo.WithTx(tx).SetExternalPaymentRef(ctx, bk.ID, ref); err != nil {
			return err
		}
		return s.transactionRepo.WithTx(tx).UpdateStatus(ctx, txn.ID, txn.Status, ref, "")
	})
	if err != nil {
		return err
	}

	bk.AttachPaymentRef(ref)
	txn.SetExternalReference(ref)
	return nil
}

// GetPayment returns the booking and its transaction.
// Returns ErrBookingNotFound if the booking doesn't exist.
func (s *PaymentServiceImpl) GetPayment(ctx context.Context, bookingID uuid.UUID) (*PaymentDetails, error) {
	bk, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactionRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	return &PaymentDetails{Booking: bk, Transaction: txn}, nil
}

// RefundPayment refunds a succeeded payment in full and cancels the booking.
// The processor call is keyed on the booking id, so retries cannot refund the
// charge twice.
func (s *PaymentServiceImpl) RefundPayment(ctx context.Context, bookingID uuid.UUID) (*PaymentDetails, error) {
	bk, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactionRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, transaction.ErrTransactionNotFound{}
	}
	if txn.Status != shared.TransactionStatusSucceeded || txn.ExternalReference == "" {
		return nil, ErrPaymentNotRefundable{BookingID: bookingID, Status: txn.Status}
	}

	refund, err := s.gateway.RefundPayment(ctx, txn.ExternalReference, "refund-"+bookingID.String())
	if err != nil {
		s.logger.Error("Refund failed at processor",
			"booking_id", bookingID.String(),
			"external_reference", txn.ExternalReference,
			"error", err)
		return nil, err
	}

	if _, err := txn.ApplyStatus(shared.TransactionStatusRefunded, ""); err != nil {
		return nil, err
	}
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.transactionRepo.WithTx(tx).UpdateStatus(ctx, txn.ID, shared.TransactionStatusRefunded, "", ""); err != nil {
			return err
		}
		return s.bookingRepo.WithTx(tx).UpdateStatus(ctx, bookingID, shared.BookingStatusCancelled)
	})
	if err != nil {
		// The processor refund went through; status repair is left to the
		// webhook pipeline, which receives the refund event as well.
		s.logger.Error("Failed to persist refund status",
			"booking_id", bookingID.String(),
			"refund_id", refund.RefundID,
			"error", err)
		return nil, err
	}

	bk.Status = shared.BookingStatusCancelled

	s.logger.Info("Payment refunded",
		"booking_id", bookingID.String(),
		"transaction_id", txn.ID.String(),
		"refund_id", refund.RefundID)

	return &PaymentDetails{Booking: bk, Transaction: txn}, nil
}
