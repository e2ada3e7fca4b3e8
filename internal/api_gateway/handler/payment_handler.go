package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/api_gateway/middleware"
	"github.com/handyhub-payment-engine/internal/api_gateway/service"
	"github.com/handyhub-payment-engine/internal/domain/booking"
	"github.com/handyhub-payment-engine/internal/domain/fees"
	"github.com/handyhub-payment-engine/internal/domain/provider"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
	"github.com/handyhub-payment-engine/internal/platform/processor"
)

// PaymentHandler handles HTTP requests for checkout, lookup and refund
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Create runs the checkout flow: fee split, onboarding check, local rows and
// the external authorization. Clients retry a failed attempt with the same
// booking_id; the retry resolves to the same external charge.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	bookingID := uuid.Nil
	if req.BookingID != "" {
		parsed, err := uuid.Parse(req.BookingID)
		if err != nil {
			h.logger.Error("Invalid booking ID", "booking_id", req.BookingID, "error", err)
			RespondBadRequest(c, "Invalid booking ID")
			return
		}
		bookingID = parsed
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.logger.Error("Invalid customer ID", "customer_id", req.CustomerID, "error", err)
		RespondBadRequest(c, "Invalid customer ID")
		return
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		h.logger.Error("Invalid provider ID", "provider_id", req.ProviderID, "error", err)
		RespondBadRequest(c, "Invalid provider ID")
		return
	}

	result, err := h.paymentService.SetupPayment(c.Request.Context(), &service.PaymentSetupInput{
		BookingID:     bookingID,
		CustomerID:    customerID,
		ProviderID:    providerID,
		ServiceAmount: req.ServiceAmount,
		Currency:      req.Currency,
		GuestCheckout: req.GuestCheckout,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondSetupError(c, err)
		return
	}

	response := PaymentSetupResponse{
		BookingID:               result.Booking.ID.String(),
		TransactionID:           result.Transaction.ID.String(),
		BookingStatus:           string(result.Booking.Status),
		TransactionStatus:       string(result.Transaction.Status),
		ExternalReference:       result.Transaction.ExternalReference,
		ClientConfirmationToken: result.ClientConfirmationToken,
		FeeBreakdown: FeeBreakdownResponse{
			ServiceAmount:    result.Breakdown.ServiceAmount,
			BasePlatformFee:  result.Breakdown.BasePlatformFee,
			GuestSurcharge:   result.Breakdown.GuestSurcharge,
			TotalPlatformFee: result.Breakdown.TotalPlatformFee,
			ProviderPayout:   result.Breakdown.ProviderPayout,
			TotalAmount:      result.Breakdown.TotalAmount,
		},
	}

	if result.Replayed {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// respondSetupError maps checkout failures onto HTTP statuses that tell the
// caller whether a retry with the same booking id can succeed
func (h *PaymentHandler) respondSetupError(c *gin.Context, err error) {
	var validationErr *fees.ValidationError
	var authErr *processor.AuthorizationError
	var rollbackErr *service.RollbackError

	switch {
	case errors.As(err, &validationErr):
		RespondBadRequest(c, validationErr.Error())
	case errors.Is(err, booking.ErrInvalidAmount),
		errors.Is(err, booking.ErrInvalidCurrencyFormat),
		errors.Is(err, booking.ErrMissingCustomer),
		errors.Is(err, booking.ErrMissingProvider):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, provider.ErrProviderNotFound{}):
		RespondNotFound(c, "Provider not found")
	case errors.Is(err, provider.ErrProviderNotOnboarded{}):
		RespondWithError(c, http.StatusUnprocessableEntity, "PROVIDER_NOT_ONBOARDED",
			"Provider cannot receive payouts yet")
	case errors.Is(err, service.ErrCheckoutConflict{}):
		RespondConflict(c, "Booking ID is already used by a different checkout")
	case errors.As(err, &rollbackErr):
		h.logger.Error("Checkout left inconsistent state", "error", err)
		RespondInternalError(c)
	case errors.As(err, &authErr):
		if authErr.Transient {
			RespondWithError(c, http.StatusServiceUnavailable, "AUTHORIZATION_RETRYABLE",
				"Payment authorization temporarily unavailable, retry with the same booking_id")
			return
		}
		RespondWithError(c, http.StatusPaymentRequired, "PAYMENT_DECLINED", authErr.Message)
	default:
		h.logger.Error("Failed to set up payment", "error", err)
		RespondInternalError(c)
	}
}

// GetByBookingID retrieves the payment state for a booking, returns 404 if not found
func (h *PaymentHandler) GetByBookingID(c *gin.Context) {
	idParam := c.Param("bookingId")
	bookingID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid booking ID", "booking_id", idParam, "error", err)
		RespondBadRequest(c, "Invalid booking ID")
		return
	}

	details, err := h.paymentService.GetPayment(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound{}) {
			RespondNotFound(c, "Booking not found")
			return
		}
		h.logger.Error("Failed to get payment", "booking_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapPaymentDetailsToResponse(details))
}

// Refund refunds a succeeded payment in full and cancels the booking
func (h *PaymentHandler) Refund(c *gin.Context) {
	idParam := c.Param("bookingId")
	bookingID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid booking ID", "booking_id", idParam, "error", err)
		RespondBadRequest(c, "Invalid booking ID")
		return
	}

	details, err := h.paymentService.RefundPayment(c.Request.Context(), bookingID)
	if err != nil {
		var authErr *processor.AuthorizationError
		switch {
		case errors.Is(err, booking.ErrBookingNotFound{}):
			RespondNotFound(c, "Booking not found")
		case errors.Is(err, transaction.ErrTransactionNotFound{}):
			RespondNotFound(c, "Transaction not found")
		case errors.Is(err, service.ErrPaymentNotRefundable{}):
			RespondConflict(c, err.Error())
		case errors.As(err, &authErr) && authErr.Transient:
			RespondWithError(c, http.StatusServiceUnavailable, "REFUND_RETRYABLE",
				"Refund temporarily unavailable, retry the request")
		default:
			h.logger.Error("Failed to refund payment", "booking_id", idParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapPaymentDetailsToResponse(details))
}

// mapPaymentDetailsToResponse maps a booking/transaction pair to the response DTO
func mapPaymentDetailsToResponse(details *service.PaymentDetails) PaymentResponse {
	response := PaymentResponse{
		Booking: BookingResponse{
			ID:                 details.Booking.ID.String(),
			CustomerID:         details.Booking.CustomerID.String(),
			ProviderID:         details.Booking.ProviderID.String(),
			ServiceAmount:      details.Booking.ServiceAmount,
			Currency:           details.Booking.Currency,
			Status:             string(details.Booking.Status),
			ExternalPaymentRef: details.Booking.ExternalPaymentRef,
			GuestCheckout:      details.Booking.GuestCheckout,
			CreatedAt:          details.Booking.CreatedAt.Format(time.RFC3339),
			UpdatedAt:          details.Booking.UpdatedAt.Format(time.RFC3339),
		},
	}

	if details.Transaction != nil {
		response.Transaction = &TransactionResponse{
			ID:                details.Transaction.ID.String(),
			BookingID:         details.Transaction.BookingID.String(),
			Amount:            details.Transaction.Amount,
			PlatformFee:       details.Transaction.PlatformFee,
			ProviderPayout:    details.Transaction.ProviderPayout,
			Currency:          details.Transaction.Currency,
			ExternalReference: details.Transaction.ExternalReference,
			Status:            string(details.Transaction.Status),
			FailureReason:     details.Transaction.FailureReason,
			CreatedAt:         details.Transaction.CreatedAt.Format(time.RFC3339),
			UpdatedAt:         details.Transaction.UpdatedAt.Format(time.RFC3339),
		}
	}

	return response
}
