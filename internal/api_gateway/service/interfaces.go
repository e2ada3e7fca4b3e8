package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/handyhub-payment-engine/internal/domain/booking"
	"github.com/handyhub-payment-engine/internal/domain/fees"
	"github.com/handyhub-payment-engine/internal/domain/reconciliation"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
	"github.com/handyhub-payment-engine/internal/platform/processor"
)

// PaymentSetupInput carries a validated checkout request into the orchestrator.
// A non-nil BookingID means the client is retrying an earlier attempt; reusing
// the id keeps the external charge idempotent.
type PaymentSetupInput struct {
	BookingID     uuid.UUID // uuid.Nil lets the orchestrator mint one
	CustomerID    uuid.UUID
	ProviderID    uuid.UUID
	ServiceAmount int64
	Currency      string
	GuestCheckout bool
	CorrelationID string
}

// PaymentSetupResult is the outcome of a successful checkout setup
type PaymentSetupResult struct {
	Booking                 *booking.Booking
	Transaction             *transaction.Transaction
	Breakdown               fees.Breakdown
	ClientConfirmationToken string
	Replayed                bool
}

// PaymentDetails pairs a booking with its transaction
type PaymentDetails struct {
	Booking     *booking.Booking
	Transaction *transaction.Transaction
}

// PaymentService defines checkout, lookup and refund operations
type PaymentService interface {
	// SetupPayment runs the full checkout flow: fee breakdown, onboarding
	// check, local rows, external authorization. A failed authorization
	// leaves no local rows behind.
	SetupPayment(ctx context.Context, input *PaymentSetupInput) (*PaymentSetupResult, error)

	// GetPayment returns the booking and its transaction
	// Returns ErrBookingNotFound if the booking doesn't exist
	GetPayment(ctx context.Context, bookingID uuid.UUID) (*PaymentDetails, error)

	// RefundPayment refunds a succeeded payment and cancels its booking
	// Returns ErrPaymentNotRefundable when the transaction state forbids it
	RefundPayment(ctx context.Context, bookingID uuid.UUID) (*PaymentDetails, error)
}

// WebhookService forwards processor payment events into the pipeline
type WebhookService interface {
	IngestPaymentEvent(ctx context.Context, event *shared.PaymentEvent) error
}

// ReconciliationService exposes run triggering and lookups to operators
type ReconciliationService interface {
	TriggerRun(ctx context.Context, runDate string, runType shared.RunType, force bool, triggeredBy string) (*reconciliation.Run, error)

	// GetRunByID retrieves a run by its ID
	// Returns nil if the run is not found
	GetRunByID(ctx context.Context, id uuid.UUID) (*reconciliation.Run, error)
	ListRuns(ctx context.Context, fromDate, toDate string, page, perPage int) ([]*reconciliation.Run, error)
}

// ProcessorGateway is the slice of the processor client the orchestrator needs
type ProcessorGateway interface {
	AuthorizePayment(ctx context.Context, req *processor.AuthorizationRequest) (*processor.AuthorizationResult, error)
	RefundPayment(ctx context.Context, externalReference, idempotencyKey string) (*processor.RefundResult, error)
}

// RunTrigger executes reconciliation runs
type RunTrigger interface {
	Reconcile(ctx context.Context, runDate string, runType shared.RunType, force bool, triggeredBy string) (*reconciliation.Run, error)
}

// TxRunner runs a function inside one database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}
