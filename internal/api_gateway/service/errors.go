package service

import (
	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// RollbackError reports that compensation after a failed authorization could
// not remove the local rows, leaving the database out of step with the
// processor. It pages an operator instead of being retried.
type RollbackError struct {
	BookingID uuid.UUID
	Cause     error // authorization failure that triggered compensation
	Err       error // compensation failure itself
}

func (e *RollbackError) Error() string {
	return "failed to roll back payment setup for booking " + e.BookingID.String() +
		": " + e.Err.Error() + " (after: " + e.Cause.Error() + ")"
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}

// ErrCheckoutConflict indicates a checkout retry whose fields differ from the
// booking already stored under the same id
type ErrCheckoutConflict struct {
	BookingID uuid.UUID
}

func (e ErrCheckoutConflict) Error() string {
	return "checkout retry does not match existing booking: " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrCheckoutConflict
func (e ErrCheckoutConflict) Is(target error) bool {
	t, ok := target.(ErrCheckoutConflict)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}

// ErrPaymentNotRefundable indicates the transaction is not in a refundable state
type ErrPaymentNotRefundable struct {
	BookingID uuid.UUID
	Status    shared.TransactionStatus
}

func (e ErrPaymentNotRefundable) Error() string {
	return "payment for booking " + e.BookingID.String() + " is not refundable in status " + string(e.Status)
}

// Is implements the errors.Is interface for ErrPaymentNotRefundable
func (e ErrPaymentNotRefundable) Is(target error) bool {
	t, ok := target.(ErrPaymentNotRefundable)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID && e.Status == t.Status
}
