// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the payment engine.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/handyhub-payment-engine/internal/domain/booking"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/platform/persistence"
)

// uniqueViolationCode is the PostgreSQL error code for unique_violation.
const uniqueViolationCode = "23505"

// BookingRepository implements the booking.Repository interface for PostgreSQL
type BookingRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBookingRepository creates a new PostgreSQL booking repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewBookingRepository(logger *slog.Logger, db *persistence.PostgresDB) booking.Repository {
	return &BookingRepository{
		querier: db.Pool(), // Initialize with the pool
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *BookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return &BookingRepository{
		querier: tx, // Use the transaction
		logger:  r.logger,
	}
}

// Create stores a new booking in the database. A booking id collision is
// reported as booking.ErrDuplicateBooking so callers can replay instead of fail.
func (r *BookingRepository) Create(ctx context.Context, bk *booking.Booking) error {
	query := `
		INSERT INTO bookings (id, customer_id, provider_id, service_amount, currency, status, external_payment_ref, guest_checkout, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		bk.ID,
		bk.CustomerID,
		bk.ProviderID,
		bk.ServiceAmount,
		bk.Currency,
		bk.Status,
		bk.ExternalPaymentRef,
		bk.GuestCheckout,
		bk.CreatedAt,
		bk.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return booking.ErrDuplicateBooking{BookingID: bk.ID}
		}
		r.logger.Error("Failed to create booking", "error", err)
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `
		SELECT id, customer_id, provider_id, service_amount, currency, status, COALESCE(external_payment_ref, ''), guest_checkout, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var bk booking.Booking
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&bk.ID,
		&bk.CustomerID,
		&bk.ProviderID,
		&bk.ServiceAmount,
		&bk.Currency,
		&bk.Status,
		&bk.ExternalPaymentRef,
		&bk.GuestCheckout,
		&bk.CreatedAt,
		&bk.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound{BookingID: id}
		}
		r.logger.Error("Failed to get booking", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &bk, nil
}

// UpdateStatus moves a booking to the given status
func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update booking status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return booking.ErrBookingNotFound{BookingID: id}
	}

	return nil
}

// SetExternalPaymentRef records the processor reference for the booking payment
func (r *BookingRepository) SetExternalPaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	query := `
		UPDATE bookings
		SET external_payment_ref = NULLIF($1, ''), updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, ref, id)
	if err != nil {
		r.logger.Error("Failed to set booking payment reference", "id", id.String(), "error", err)
		return fmt.Errorf("failed to set booking payment reference: %w", err)
	}

	if result.RowsAffected() == 0 {
		return booking.ErrBookingNotFound{BookingID: id}
	}

	return nil
}

// Delete removes a booking row. The compensation path uses it to undo a booking
// whose payment setup never reached the processor. A missing row is treated as
// already deleted.
func (r *BookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM bookings
		WHERE id = $1
	`

	_, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete booking", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	return nil
}
