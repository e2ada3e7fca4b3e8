package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/handyhub-payment-engine/internal/api_gateway/service"
	"github.com/handyhub-payment-engine/internal/domain/booking"
	"github.com/handyhub-payment-engine/internal/domain/fees"
	"github.com/handyhub-payment-engine/internal/domain/provider"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
	"github.com/handyhub-payment-engine/internal/platform/processor"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) SetupPayment(ctx context.Context, input *service.PaymentSetupInput) (*service.PaymentSetupResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentSetupResult), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, bookingID uuid.UUID) (*service.PaymentDetails, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentDetails), args.Error(1)
}

func (m *MockPaymentService) RefundPayment(ctx context.Context, bookingID uuid.UUID) (*service.PaymentDetails, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentDetails), args.Error(1)
}

var _ service.PaymentService = (*MockPaymentService)(nil)

func setupResult(t *testing.T) *service.PaymentSetupResult {
	t.Helper()

	bk, err := booking.NewBooking(uuid.Nil, uuid.New(), uuid.New(), 10000, "USD", true)
	require.NoError(t, err)
	txn, err := transaction.NewTransaction(bk.ID, 10500, 1500, 9000, "USD")
	require.NoError(t, err)
	txn.SetExternalReference("pi_3MtwBwLkdIwHu7ix28a3tqPa")

	return &service.PaymentSetupResult{
		Booking:     bk,
		Transaction: txn,
		Breakdown: fees.Breakdown{
			ServiceAmount:    10000,
			BasePlatformFee:  1000,
			GuestSurcharge:   500,
			TotalPlatformFee: 1500,
			ProviderPayout:   9000,
			TotalAmount:      10500,
		},
		ClientConfirmationToken: "pi_secret_token",
	}
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestPaymentHandler_Create(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	validRequest := func() CreatePaymentRequest {
		return CreatePaymentRequest{
			CustomerID:    uuid.New().String(),
			ProviderID:    uuid.New().String(),
			ServiceAmount: 10000,
			Currency:      "USD",
			GuestCheckout: true,
		}
	}

	newRouter := func(mockService *MockPaymentService) *gin.Engine {
		handler := NewPaymentHandler(logger, mockService)
		router := gin.New()
		router.POST("/payments", handler.Create)
		return router
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		result := setupResult(t)
		mockService.On("SetupPayment", mock.Anything, mock.MatchedBy(func(input *service.PaymentSetupInput) bool {
			return input.ServiceAmount == 10000 && input.GuestCheckout && input.Currency == "USD"
		})).Return(result, nil)

		rr := postJSON(newRouter(mockService), "/payments", validRequest())

		assert.Equal(t, http.StatusCreated, rr.Code)

		var response struct {
			Data PaymentSetupResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		assert.Equal(t, result.Booking.ID.String(), response.Data.BookingID)
		assert.Equal(t, "pi_3MtwBwLkdIwHu7ix28a3tqPa", response.Data.ExternalReference)
		assert.Equal(t, "pi_secret_token", response.Data.ClientConfirmationToken)
		assert.Equal(t, int64(10500), response.Data.FeeBreakdown.TotalAmount)
		assert.Equal(t, int64(9000), response.Data.FeeBreakdown.ProviderPayout)
		mockService.AssertExpectations(t)
	})

	t.Run("ReplayedSetupReturns200", func(t *testing.T) {
		mockService := new(MockPaymentService)
		result := setupResult(t)
		result.Replayed = true
		mockService.On("SetupPayment", mock.Anything, mock.Anything).Return(result, nil)

		req := validRequest()
		req.BookingID = result.Booking.ID.String()
		rr := postJSON(newRouter(mockService), "/payments", req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockService := new(MockPaymentService)
		router := newRouter(mockService)

		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(`{"invalid`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "SetupPayment")
	})

	t.Run("ValidationErrorReturns400", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("SetupPayment", mock.Anything, mock.Anything).
			Return(nil, &fees.ValidationError{Field: "service_amount", Reason: "must not be negative"})

		rr := postJSON(newRouter(mockService), "/payments", validRequest())

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("ProviderNotOnboardedReturns422", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("SetupPayment", mock.Anything, mock.Anything).
			Return(nil, provider.ErrProviderNotOnboarded{ProviderID: uuid.New()})

		rr := postJSON(newRouter(mockService), "/payments", validRequest())

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		var response Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		require.NotNil(t, response.Error)
		assert.Equal(t, "PROVIDER_NOT_ONBOARDED", response.Error.Code)
	})

	t.Run("TransientAuthorizationErrorReturns503", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("SetupPayment", mock.Anything, mock.Anything).
			Return(nil, &processor.AuthorizationError{Transient: true, Message: "processor unreachable"})

		rr := postJSON(newRouter(mockService), "/payments", validRequest())

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

		var response Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		require.NotNil(t, response.Error)
		assert.Equal(t, "AUTHORIZATION_RETRYABLE", response.Error.Code)
	})

	t.Run("PermanentDeclineReturns402", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("SetupPayment", mock.Anything, mock.Anything).
			Return(nil, &processor.AuthorizationError{StatusCode: 402, Code: "card_declined", Message: "Your card was declined"})

		rr := postJSON(newRouter(mockService), "/payments", validRequest())

		assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	})

	t.Run("RollbackErrorReturns500", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("SetupPayment", mock.Anything, mock.Anything).
			Return(nil, &service.RollbackError{BookingID: uuid.New(), Cause: assert.AnError, Err: assert.AnError})

		rr := postJSON(newRouter(mockService), "/payments", validRequest())

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("CheckoutConflictReturns409", func(t *testing.T) {
		mockService := new(MockPaymentService)
		mockService.On("SetupPayment", mock.Anything, mock.Anything).
			Return(nil, service.ErrCheckoutConflict{BookingID: uuid.New()})

		rr := postJSON(newRouter(mockService), "/payments", validRequest())

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestPaymentHandler_GetByBookingID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	newRouter := func(mockService *MockPaymentService) *gin.Engine {
		handler := NewPaymentHandler(logger, mockService)
		router := gin.New()
		router.GET("/payments/:bookingId", handler.GetByBookingID)
		return router
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		result := setupResult(t)
		details := &service.PaymentDetails{Booking: result.Booking, Transaction: result.Transaction}
		mockService.On("GetPayment", mock.Anything, result.Booking.ID).Return(details, nil)

		req, _ := http.NewRequest(http.MethodGet, "/payments/"+result.Booking.ID.String(), nil)
		rr := httptest.NewRecorder()
		newRouter(mockService).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response struct {
			Data PaymentResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		assert.Equal(t, result.Booking.ID.String(), response.Data.Booking.ID)
		require.NotNil(t, response.Data.Transaction)
		assert.Equal(t, string(shared.TransactionStatusPending), response.Data.Transaction.Status)
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockPaymentService)
		bookingID := uuid.New()
		mockService.On("GetPayment", mock.Anything, bookingID).
			Return(nil, booking.ErrBookingNotFound{BookingID: bookingID})

		req, _ := http.NewRequest(http.MethodGet, "/payments/"+bookingID.String(), nil)
		rr := httptest.NewRecorder()
		newRouter(mockService).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockPaymentService)

		req, _ := http.NewRequest(http.MethodGet, "/payments/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		newRouter(mockService).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "GetPayment")
	})
}

func TestPaymentHandler_Refund(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	newRouter := func(mockService *MockPaymentService) *gin.Engine {
		handler := NewPaymentHandler(logger, mockService)
		router := gin.New()
		router.POST("/payments/:bookingId/refund", handler.Refund)
		return router
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		result := setupResult(t)
		result.Transaction.Status = shared.TransactionStatusRefunded
		result.Booking.Status = shared.BookingStatusCancelled
		details := &service.PaymentDetails{Booking: result.Booking, Transaction: result.Transaction}
		mockService.On("RefundPayment", mock.Anything, result.Booking.ID).Return(details, nil)

		req, _ := http.NewRequest(http.MethodPost, "/payments/"+result.Booking.ID.String()+"/refund", nil)
		rr := httptest.NewRecorder()
		newRouter(mockService).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response struct {
			Data PaymentResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		assert.Equal(t, string(shared.BookingStatusCancelled), response.Data.Booking.Status)
		require.NotNil(t, response.Data.Transaction)
		assert.Equal(t, string(shared.TransactionStatusRefunded), response.Data.Transaction.Status)
	})

	t.Run("NotRefundableReturns409", func(t *testing.T) {
		mockService := new(MockPaymentService)
		bookingID := uuid.New()
		mockService.On("RefundPayment", mock.Anything, bookingID).
			Return(nil, service.ErrPaymentNotRefundable{BookingID: bookingID, Status: shared.TransactionStatusPending})

		req, _ := http.NewRequest(http.MethodPost, "/payments/"+bookingID.String()+"/refund", nil)
		rr := httptest.NewRecorder()
		newRouter(mockService).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}
