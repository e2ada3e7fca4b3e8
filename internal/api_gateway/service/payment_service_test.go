package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/handyhub-payment-engine/internal/domain/booking"
	"github.com/handyhub-payment-engine/internal/domain/fees"
	"github.com/handyhub-payment-engine/internal/domain/provider"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
	"github.com/handyhub-payment-engine/internal/platform/processor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// MockTxRunner executes the transactional function directly; the repositories
// under it are mocks, so no real pgx.Tx is needed.
type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, bk *booking.Booking) error {
	args := m.Called(ctx, bk)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.BookingStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockBookingRepository) SetExternalPaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	args := m.Called(ctx, id, ref)
	return args.Error(0)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return m
}

var _ booking.Repository = (*MockBookingRepository)(nil)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByExternalReference(ctx context.Context, ref string) (*transaction.Transaction, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) LockByExternalReference(ctx context.Context, ref string) (*transaction.Transaction, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.TransactionStatus, externalReference, failureReason string) error {
	args := m.Called(ctx, id, status, externalReference, failureReason)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByWindow(ctx context.Context, start, end time.Time, limit, offset int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, start, end, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByWindow(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) DeleteByBookingID(ctx context.Context, bookingID uuid.UUID) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return m
}

var _ transaction.Repository = (*MockTransactionRepository)(nil)

type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) GetOnboardingStatus(ctx context.Context, providerID uuid.UUID) (*provider.OnboardingStatus, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.OnboardingStatus), args.Error(1)
}

var _ provider.Client = (*MockProviderClient)(nil)

type MockProcessorGateway struct {
	mock.Mock
}

func (m *MockProcessorGateway) AuthorizePayment(ctx context.Context, req *processor.AuthorizationRequest) (*processor.AuthorizationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.AuthorizationResult), args.Error(1)
}

func (m *MockProcessorGateway) RefundPayment(ctx context.Context, externalReference, idempotencyKey string) (*processor.RefundResult, error) {
	args := m.Called(ctx, externalReference, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.RefundResult), args.Error(1)
}

var _ ProcessorGateway = (*MockProcessorGateway)(nil)

type paymentServiceFixture struct {
	db              *MockTxRunner
	bookingRepo     *MockBookingRepository
	transactionRepo *MockTransactionRepository
	providers       *MockProviderClient
	gateway         *MockProcessorGateway
	service         PaymentService
}

func newPaymentServiceFixture(t *testing.T) *paymentServiceFixture {
	t.Helper()

	calculator, err := fees.NewCalculator(10, 5)
	require.NoError(t, err)

	f := &paymentServiceFixture{
		db:              new(MockTxRunner),
		bookingRepo:     new(MockBookingRepository),
		transactionRepo: new(MockTransactionRepository),
		providers:       new(MockProviderClient),
		gateway:         new(MockProcessorGateway),
	}
	f.service = NewPaymentService(testLogger(), f.db, f.bookingRepo, f.transactionRepo, f.providers, f.gateway, calculator)
	return f
}

func onboarded() *provider.OnboardingStatus {
	return &provider.OnboardingStatus{
		ConnectedAccountID: "acct_1032D82eZvKYlo2C",
		PayoutsEnabled:     true,
		ChargesEnabled:     true,
	}
}

func setupInput() *PaymentSetupInput {
	return &PaymentSetupInput{
		CustomerID:    uuid.New(),
		ProviderID:    uuid.New(),
		ServiceAmount: 10000,
		Currency:      "USD",
		GuestCheckout: true,
		CorrelationID: uuid.New().String(),
	}
}

func TestPaymentService_SetupPayment(t *testing.T) {
	t.Run("successful checkout splits the charge", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		input := setupInput()

		f.providers.On("GetOnboardingStatus", mock.Anything, input.ProviderID).Return(onboarded(), nil)
		f.db.On("ExecuteTx", mock.Anything, mock.Anything).Return(nil)
		f.bookingRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.transactionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("AuthorizePayment", mock.Anything, mock.MatchedBy(func(req *processor.AuthorizationRequest) bool {
			// 10% platform fee + 5% guest surcharge on 10000
			return req.Amount == 10500 &&
				req.ApplicationFeeAmount == 1500 &&
				req.DestinationAccountID == "acct_1032D82eZvKYlo2C" &&
				req.IdempotencyKey != ""
		})).Return(&processor.AuthorizationResult{
			ExternalReference:       "pi_3MtwBwLkdIwHu7ix28a3tqPa",
			ClientConfirmationToken: "pi_secret",
			Status:                  "requires_confirmation",
		}, nil)
		f.bookingRepo.On("SetExternalPaymentRef", mock.Anything, mock.Anything, "pi_3MtwBwLkdIwHu7ix28a3tqPa").Return(nil)
		f.transactionRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.TransactionStatusPending, "pi_3MtwBwLkdIwHu7ix28a3tqPa", "").Return(nil)

		result, err := f.service.SetupPayment(context.Background(), input)

		require.NoError(t, err)
		assert.Equal(t, int64(9000), result.Breakdown.ProviderPayout)
		assert.Equal(t, int64(1500), result.Breakdown.TotalPlatformFee)
		assert.Equal(t, "pi_secret", result.ClientConfirmationToken)
		assert.Equal(t, "pi_3MtwBwLkdIwHu7ix28a3tqPa", result.Transaction.ExternalReference)
		assert.False(t, result.Replayed)
		f.gateway.AssertExpectations(t)
	})

	t.Run("idempotency key is derived from the booking id", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		input := setupInput()
		input.BookingID = uuid.New()

		f.providers.On("GetOnboardingStatus", mock.Anything, input.ProviderID).Return(onboarded(), nil)
		f.bookingRepo.On("GetByID", mock.Anything, input.BookingID).
			Return(nil, booking.ErrBookingNotFound{BookingID: input.BookingID})
		f.db.On("ExecuteTx", mock.Anything, mock.Anything).Return(nil)
		f.bookingRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.transactionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("AuthorizePayment", mock.Anything, mock.MatchedBy(func(req *processor.AuthorizationRequest) bool {
			return req.IdempotencyKey == "booking-"+input.BookingID.String()
		})).Return(&processor.AuthorizationResult{ExternalReference: "pi_1", ClientConfirmationToken: "secret"}, nil)
		f.bookingRepo.On("SetExternalPaymentRef", mock.Anything, input.BookingID, "pi_1").Return(nil)
		f.transactionRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.TransactionStatusPending, "pi_1", "").Return(nil)

		result, err := f.service.SetupPayment(context.Background(), input)

		require.NoError(t, err)
		assert.Equal(t, input.BookingID, result.Booking.ID)
		f.gateway.AssertExpectations(t)
	})

	t.Run("provider without payout capability is rejected before any external call", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		input := setupInput()

		f.providers.On("GetOnboardingStatus", mock.Anything, input.ProviderID).Return(&provider.OnboardingStatus{
			ConnectedAccountID: "acct_1032D82eZvKYlo2C",
			PayoutsEnabled:     false,
			ChargesEnabled:     true,
		}, nil)

		_, err := f.service.SetupPayment(context.Background(), input)

		assert.ErrorIs(t, err, provider.ErrProviderNotOnboarded{ProviderID: input.ProviderID})
		f.gateway.AssertNotCalled(t, "AuthorizePayment")
		f.bookingRepo.AssertNotCalled(t, "Create")
	})

	t.Run("failed authorization rolls back the local rows", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		input := setupInput()

		var createdBookingID uuid.UUID
		f.providers.On("GetOnboardingStatus", mock.Anything, input.ProviderID).Return(onboarded(), nil)
		f.db.On("ExecuteTx", mock.Anything, mock.Anything).Return(nil)
		f.bookingRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			createdBookingID = args.Get(1).(*booking.Booking).ID
		}).Return(nil)
		f.transactionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		authErr := &processor.AuthorizationError{StatusCode: 402, Code: "card_declined", Message: "declined"}
		f.gateway.On("AuthorizePayment", mock.Anything, mock.Anything).Return(nil, authErr)

		f.transactionRepo.On("DeleteByBookingID", mock.Anything, mock.Anything).Return(nil)
		f.bookingRepo.On("Delete", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.SetupPayment(context.Background(), input)

		require.Error(t, err)
		assert.Equal(t, authErr, err)
		f.transactionRepo.AssertCalled(t, "DeleteByBookingID", mock.Anything, createdBookingID)
		f.bookingRepo.AssertCalled(t, "Delete", mock.Anything, createdBookingID)
	})

	t.Run("failed compensation surfaces as RollbackError", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		input := setupInput()

		f.providers.On("GetOnboardingStatus", mock.Anything, input.ProviderID).Return(onboarded(), nil)
		f.db.On("ExecuteTx", mock.Anything, mock.Anything).Return(nil).Once()
		f.bookingRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.transactionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("AuthorizePayment", mock.Anything, mock.Anything).
			Return(nil, &processor.AuthorizationError{StatusCode: 402, Message: "declined"})
		f.db.On("ExecuteTx", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := f.service.SetupPayment(context.Background(), input)

		var rollbackErr *RollbackError
		require.ErrorAs(t, err, &rollbackErr)
	})

	t.Run("retry with same booking id replays the existing setup", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		input := setupInput()
		input.BookingID = uuid.New()

		existing, err := booking.NewBooking(input.BookingID, input.CustomerID, input.ProviderID, input.ServiceAmount, input.Currency, input.GuestCheckout)
		require.NoError(t, err)
		existingTxn, err := transaction.NewTransaction(existing.ID, 10500, 1500, 9000, "USD")
		require.NoError(t, err)

		f.providers.On("GetOnboardingStatus", mock.Anything, input.ProviderID).Return(onboarded(), nil)
		f.bookingRepo.On("GetByID", mock.Anything, input.BookingID).Return(existing, nil)
		f.transactionRepo.On("GetByBookingID", mock.Anything, input.BookingID).Return(existingTxn, nil)
		f.gateway.On("AuthorizePayment", mock.Anything, mock.MatchedBy(func(req *processor.AuthorizationRequest) bool {
			return req.IdempotencyKey == "booking-"+input.BookingID.String()
		})).Return(&processor.AuthorizationResult{ExternalReference: "pi_1", ClientConfirmationToken: "secret"}, nil)
		f.db.On("ExecuteTx", mock.Anything, mock.Anything).Return(nil)
		f.bookingRepo.On("SetExternalPaymentRef", mock.Anything, input.BookingID, "pi_1").Return(nil)
		f.transactionRepo.On("UpdateStatus", mock.Anything, existingTxn.ID, shared.TransactionStatusPending, "pi_1", "").Return(nil)

		result, err := f.service.SetupPayment(context.Background(), input)

		require.NoError(t, err)
		assert.True(t, result.Replayed)
		f.bookingRepo.AssertNotCalled(t, "Create")
	})

	t.Run("retry with mismatched fields is a conflict", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		input := setupInput()
		input.BookingID = uuid.New()

		stored, err := booking.NewBooking(input.BookingID, input.CustomerID, input.ProviderID, 99999, input.Currency, input.GuestCheckout)
		require.NoError(t, err)

		f.providers.On("GetOnboardingStatus", mock.Anything, input.ProviderID).Return(onboarded(), nil)
		f.bookingRepo.On("GetByID", mock.Anything, input.BookingID).Return(stored, nil)

		_, err = f.service.SetupPayment(context.Background(), input)

		assert.ErrorIs(t, err, ErrCheckoutConflict{BookingID: input.BookingID})
		f.gateway.AssertNotCalled(t, "AuthorizePayment")
	})

	t.Run("negative amount is a validation error", func(t *testing.T) {
		f := newPaymentServiceFixture(t)
		input := setupInput()
		input.ServiceAmount = -1

		_, err := f.service.SetupPayment(context.Background(), input)

		var validationErr *fees.ValidationError
		require.ErrorAs(t, err, &validationErr)
		f.providers.AssertNotCalled(t, "GetOnboardingStatus")
	})
}

func TestPaymentService_RefundPayment(t *testing.T) {
	t.Run("refunds a succeeded payment and cancels the booking", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		bk, err := booking.NewBooking(uuid.Nil, uuid.New(), uuid.New(), 10000, "USD", false)
		require.NoError(t, err)
		bk.Status = shared.BookingStatusConfirmed
		txn, err := transaction.NewTransaction(bk.ID, 10000, 1000, 9000, "USD")
		require.NoError(t, err)
		txn.SetExternalReference("pi_1")
		txn.Status = shared.TransactionStatusSucceeded

		f.bookingRepo.On("GetByID", mock.Anything, bk.ID).Return(bk, nil)
		f.transactionRepo.On("GetByBookingID", mock.Anything, bk.ID).Return(txn, nil)
		f.gateway.On("RefundPayment", mock.Anything, "pi_1", "refund-"+bk.ID.String()).
			Return(&processor.RefundResult{RefundID: "re_1", Status: "succeeded"}, nil)
		f.db.On("ExecuteTx", mock.Anything, mock.Anything).Return(nil)
		f.transactionRepo.On("UpdateStatus", mock.Anything, txn.ID, shared.TransactionStatusRefunded, "", "").Return(nil)
		f.bookingRepo.On("UpdateStatus", mock.Anything, bk.ID, shared.BookingStatusCancelled).Return(nil)

		details, err := f.service.RefundPayment(context.Background(), bk.ID)

		require.NoError(t, err)
		assert.Equal(t, shared.TransactionStatusRefunded, details.Transaction.Status)
		assert.Equal(t, shared.BookingStatusCancelled, details.Booking.Status)
		f.gateway.AssertExpectations(t)
	})

	t.Run("pending payment is not refundable", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		bk, err := booking.NewBooking(uuid.Nil, uuid.New(), uuid.New(), 10000, "USD", false)
		require.NoError(t, err)
		txn, err := transaction.NewTransaction(bk.ID, 10000, 1000, 9000, "USD")
		require.NoError(t, err)

		f.bookingRepo.On("GetByID", mock.Anything, bk.ID).Return(bk, nil)
		f.transactionRepo.On("GetByBookingID", mock.Anything, bk.ID).Return(txn, nil)

		_, err = f.service.RefundPayment(context.Background(), bk.ID)

		assert.ErrorIs(t, err, ErrPaymentNotRefundable{BookingID: bk.ID, Status: shared.TransactionStatusPending})
		f.gateway.AssertNotCalled(t, "RefundPayment")
	})
}
