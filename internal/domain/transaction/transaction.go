package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// Common errors
var (
	ErrInvalidAmount     = errors.New("amounts must not be negative")
	ErrMissingBooking    = errors.New("booking id is required")
	ErrInconsistentSplit = errors.New("platform fee plus provider payout must equal amount")
)

// Transaction is the internal record of money movement for one booking.
// Amount is the full charge to the customer; PlatformFee and ProviderPayout
// are its two destinations and always sum to Amount.
type Transaction struct {
	ID                uuid.UUID                `json:"id"`
	BookingID         uuid.UUID                `json:"booking_id"`
	Amount            int64                    `json:"amount"` // Stored in cents/minor units
	PlatformFee       int64                    `json:"platform_fee"`
	ProviderPayout    int64                    `json:"provider_payout"`
	Currency          string                   `json:"currency"`
	ExternalReference string                   `json:"external_reference,omitempty"`
	Status            shared.TransactionStatus `json:"status"`
	FailureReason     string                   `json:"failure_reason,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// NewTransaction creates a pending transaction for a booking
func NewTransaction(bookingID uuid.UUID, amount, platformFee, providerPayout int64, currency string) (*Transaction, error) {
	if bookingID == uuid.Nil {
		return nil, ErrMissingBooking
	}
	if amount < 0 || platformFee < 0 || providerPayout < 0 {
		return nil, ErrInvalidAmount
	}
	if platformFee+providerPayout != amount {
		return nil, ErrInconsistentSplit
	}

	return &Transaction{
		ID:             uuid.New(),
		BookingID:      bookingID,
		Amount:         amount,
		PlatformFee:    platformFee,
		ProviderPayout: providerPayout,
		Currency:       currency,
		Status:         shared.TransactionStatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}, nil
}

// ErrInvalidStatusTransition indicates a webhook event arriving out of order
type ErrInvalidStatusTransition struct {
	From shared.TransactionStatus
	To   shared.TransactionStatus
}

func (e ErrInvalidStatusTransition) Error() string {
	return "invalid transaction status transition: " + string(e.From) + " -> " + string(e.To)
}

// Is implements the errors.Is interface for ErrInvalidStatusTransition
func (e ErrInvalidStatusTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidStatusTransition)
	if !ok {
		return false
	}
	if t.From == "" && t.To == "" {
		return true
	}
	return e.From == t.From && e.To == t.To
}

// ApplyStatus applies a processor-reported status to the transaction.
// Re-delivering the current status is a no-op, which keeps webhook handling
// idempotent on the external reference. Returns whether anything changed.
func (t *Transaction) ApplyStatus(next shared.TransactionStatus, failureReason string) (bool, error) {
	if next == t.Status {
		return false, nil
	}

	allowed := false
	switch t.Status {
	case shared.TransactionStatusPending:
		allowed = next == shared.TransactionStatusSucceeded ||
			next == shared.TransactionStatusFailed ||
			next == shared.TransactionStatusRefunded
	case shared.TransactionStatusSucceeded:
		allowed = next == shared.TransactionStatusRefunded
	}
	if !allowed {
		return false, ErrInvalidStatusTransition{From: t.Status, To: next}
	}

	t.Status = next
	if next == shared.TransactionStatusFailed {
		if failureReason == "" {
			failureReason = string(shared.FailureReasonUnknownError)
		}
		t.FailureReason = failureReason
	}
	t.UpdatedAt = time.Now()
	return true, nil
}

// SetExternalReference records the processor's reference after authorization
func (t *Transaction) SetExternalReference(ref string) {
	t.ExternalReference = ref
	t.UpdatedAt = time.Now()
}
