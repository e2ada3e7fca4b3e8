package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// Repository defines booking persistence operations
type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.BookingStatus) error
	SetExternalPaymentRef(ctx context.Context, id uuid.UUID, ref string) error

	// Delete removes a booking row; used only by the payment-setup
	// compensation path
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrBookingNotFound indicates missing booking
type ErrBookingNotFound struct {
	BookingID uuid.UUID
}

func (e ErrBookingNotFound) Error() string {
	return "booking not found: " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrBookingNotFound
func (e ErrBookingNotFound) Is(target error) bool {
	t, ok := target.(ErrBookingNotFound)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}

// ErrDuplicateBooking indicates booking id uniqueness violation
type ErrDuplicateBooking struct {
	BookingID uuid.UUID
}

func (e ErrDuplicateBooking) Error() string {
	return "booking already exists: " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrDuplicateBooking
func (e ErrDuplicateBooking) Is(target error) bool {
	t, ok := target.(ErrDuplicateBooking)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}
