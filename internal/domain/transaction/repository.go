package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// Repository defines transaction persistence operations.
// FindByWindow filters on creation time only: failed and refunded rows still
// have to be reconciled against processor records for their period.
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Transaction, error)
	GetByExternalReference(ctx context.Context, ref string) (*Transaction, error)

	// LockByExternalReference acquires a pessimistic row lock for
	// webhook-driven status transitions
	LockByExternalReference(ctx context.Context, ref string) (*Transaction, error)

	// UpdateStatus persists a status change; a non-empty externalReference is
	// written alongside it, an empty one leaves the stored value untouched
	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.TransactionStatus, externalReference, failureReason string) error

	FindByWindow(ctx context.Context, start, end time.Time, limit, offset int) ([]*Transaction, error)
	CountByWindow(ctx context.Context, start, end time.Time) (int64, error)

	// DeleteByBookingID removes a transaction row; used only by the
	// payment-setup compensation path
	DeleteByBookingID(ctx context.Context, bookingID uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates missing transaction
type ErrTransactionNotFound struct {
	TransactionID     uuid.UUID
	ExternalReference string
}

func (e ErrTransactionNotFound) Error() string {
	if e.ExternalReference != "" {
		return "transaction not found for external reference: " + e.ExternalReference
	}
	return "transaction not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil && t.ExternalReference == "" {
		return true
	}
	return e.TransactionID == t.TransactionID && e.ExternalReference == t.ExternalReference
}

// ErrDuplicateTransaction indicates the booking already has a transaction
type ErrDuplicateTransaction struct {
	BookingID uuid.UUID
}

func (e ErrDuplicateTransaction) Error() string {
	return "transaction already exists for booking: " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrDuplicateTransaction
func (e ErrDuplicateTransaction) Is(target error) bool {
	t, ok := target.(ErrDuplicateTransaction)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}
