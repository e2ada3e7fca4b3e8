package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
	"github.com/handyhub-payment-engine/internal/platform/persistence"
)

const transactionColumns = `id, booking_id, amount, platform_fee, provider_payout, currency, COALESCE(external_reference, ''), status, COALESCE(failure_reason, ''), created_at, updated_at`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(), // Initialize with the pool
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx, // Use the transaction
		logger:  r.logger,
	}
}

// Create stores a new transaction in the database. The one-transaction-per-booking
// constraint is reported as transaction.ErrDuplicateTransaction.
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, booking_id, amount, platform_fee, provider_payout, currency, external_reference, status, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.BookingID,
		txn.Amount,
		txn.PlatformFee,
		txn.ProviderPayout,
		txn.Currency,
		txn.ExternalReference,
		txn.Status,
		txn.FailureReason,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return transaction.ErrDuplicateTransaction{BookingID: txn.BookingID}
		}
		r.logger.Error("Failed to create transaction", "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	txn, err := r.scanRow(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetByBookingID retrieves the transaction created for a booking
func (r *TransactionRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE booking_id = $1
	`

	txn, err := r.scanRow(r.querier.QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Return nil, nil when the booking has no transaction yet
		}
		r.logger.Error("Failed to get transaction by booking", "bookingID", bookingID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction by booking: %w", err)
	}

	return txn, nil
}

// GetByExternalReference retrieves a transaction by its processor reference
func (r *TransactionRepository) GetByExternalReference(ctx context.Context, ref string) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE external_reference = $1
	`

	txn, err := r.scanRow(r.querier.QueryRow(ctx, query, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ExternalReference: ref}
		}
		r.logger.Error("Failed to get transaction by reference", "externalReference", ref, "error", err)
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}

	return txn, nil
}

// LockByExternalReference obtains a pessimistic lock on the transaction and returns
// its current state. This should be used within a transaction when applying
// webhook-driven status changes.
func (r *TransactionRepository) LockByExternalReference(ctx context.Context, ref string) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE external_reference = $1
		FOR UPDATE
	`

	txn, err := r.scanRow(r.querier.QueryRow(ctx, query, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ExternalReference: ref}
		}
		r.logger.Error("Failed to lock transaction for update", "externalReference", ref, "error", err)
		return nil, fmt.Errorf("failed to lock transaction for update: %w", err)
	}

	return txn, nil
}

// UpdateStatus persists a status change. A non-empty externalReference or
// failureReason is written alongside it, an empty one leaves the stored value
// untouched.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.TransactionStatus, externalReference, failureReason string) error {
	query := `
		UPDATE transactions
		SET status = $1, external_reference = COALESCE(NULLIF($2, ''), external_reference), failure_reason = COALESCE(NULLIF($3, ''), failure_reason), updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, status, externalReference, failureReason, id)
	if err != nil {
		r.logger.Error("Failed to update transaction status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

// FindByWindow returns transactions created inside [start, end) in stable
// creation order. Pages are addressed with limit and offset so callers can
// drain a window without loading it whole.
func (r *TransactionRepository) FindByWindow(ctx context.Context, start, end time.Time, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.querier.Query(ctx, query, start, end, limit, offset)
	if err != nil {
		r.logger.Error("Failed to find transactions by window", "error", err)
		return nil, fmt.Errorf("failed to find transactions by window: %w", err)
	}
	defer rows.Close()

	transactions := make([]*transaction.Transaction, 0)
	for rows.Next() {
		txn, err := r.scanRow(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction row", "error", err)
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Failed to iterate transaction rows", "error", err)
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}

	return transactions, nil
}

// CountByWindow returns the number of transactions created inside [start, end)
func (r *TransactionRepository) CountByWindow(ctx context.Context, start, end time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
	`

	var count int64
	err := r.querier.QueryRow(ctx, query, start, end).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count transactions by window", "error", err)
		return 0, fmt.Errorf("failed to count transactions by window: %w", err)
	}

	return count, nil
}

// DeleteByBookingID removes the transaction created for a booking. The
// compensation path uses it to undo a payment setup that never reached the
// processor. A missing row is treated as already deleted.
func (r *TransactionRepository) DeleteByBookingID(ctx context.Context, bookingID uuid.UUID) error {
	query := `
		DELETE FROM transactions
		WHERE booking_id = $1
	`

	_, err := r.querier.Exec(ctx, query, bookingID)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "bookingID", bookingID.String(), "error", err)
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	return nil
}

// scanRow maps one row onto a Transaction using the transactionColumns order
func (r *TransactionRepository) scanRow(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.BookingID,
		&txn.Amount,
		&txn.PlatformFee,
		&txn.ProviderPayout,
		&txn.Currency,
		&txn.ExternalReference,
		&txn.Status,
		&txn.FailureReason,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &txn, nil
}
