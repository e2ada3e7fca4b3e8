package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// Common errors
var (
	ErrInvalidAmount         = errors.New("service amount must not be negative")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
	ErrMissingCustomer       = errors.New("customer id is required")
	ErrMissingProvider       = errors.New("provider id is required")
	ErrInvalidStatusChange   = errors.New("booking status change not allowed")
)

// Booking represents a customer's purchase of a provider's service
type Booking struct {
	ID                 uuid.UUID            `json:"id"`
	CustomerID         uuid.UUID            `json:"customer_id"`
	ProviderID         uuid.UUID            `json:"provider_id"`
	ServiceAmount      int64                `json:"service_amount"` // Stored in cents/minor units
	Currency           string               `json:"currency"`
	Status             shared.BookingStatus `json:"status"`
	ExternalPaymentRef string               `json:"external_payment_ref,omitempty"`
	GuestCheckout      bool                 `json:"guest_checkout"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// NewBooking creates a pending booking. A zero id means the caller did not
// supply one and a fresh id is generated; callers retrying a checkout pass
// the same id so the attempt stays idempotent.
func NewBooking(id uuid.UUID, customerID, providerID uuid.UUID, serviceAmount int64, currency string, guestCheckout bool) (*Booking, error) {
	if customerID == uuid.Nil {
		return nil, ErrMissingCustomer
	}
	if providerID == uuid.Nil {
		return nil, ErrMissingProvider
	}
	if serviceAmount < 0 {
		return nil, ErrInvalidAmount
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}
	if id == uuid.Nil {
		id = uuid.New()
	}

	return &Booking{
		ID:            id,
		CustomerID:    customerID,
		ProviderID:    providerID,
		ServiceAmount: serviceAmount,
		Currency:      currency,
		Status:        shared.BookingStatusPending,
		GuestCheckout: guestCheckout,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}, nil
}

// Confirm moves a pending booking to confirmed after payment success
func (b *Booking) Confirm() error {
	if b.Status != shared.BookingStatusPending {
		return ErrInvalidStatusChange
	}

	b.Status = shared.BookingStatusConfirmed
	b.UpdatedAt = time.Now()
	return nil
}

// Cancel voids a booking after payment failure or refund
func (b *Booking) Cancel() error {
	if b.Status != shared.BookingStatusPending && b.Status != shared.BookingStatusConfirmed {
		return ErrInvalidStatusChange
	}

	b.Status = shared.BookingStatusCancelled
	b.UpdatedAt = time.Now()
	return nil
}

// AttachPaymentRef records the processor's reference once authorization succeeds
func (b *Booking) AttachPaymentRef(ref string) {
	b.ExternalPaymentRef = ref
	b.UpdatedAt = time.Now()
}
