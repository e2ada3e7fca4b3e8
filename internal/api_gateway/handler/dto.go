package handler

import "time"

// CreatePaymentRequest represents a checkout request. Clients retrying a
// failed attempt send the same booking_id again so the charge stays single.
type CreatePaymentRequest struct {
	BookingID     string `json:"booking_id,omitempty" binding:"omitempty,uuid"`
	CustomerID    string `json:"customer_id" binding:"required,uuid"`
	ProviderID    string `json:"provider_id" binding:"required,uuid"`
	ServiceAmount int64  `json:"service_amount" binding:"required,gt=0"`
	Currency      string `json:"currency" binding:"required,len=3"`
	GuestCheckout bool   `json:"guest_checkout"`
}

// FeeBreakdownResponse represents the fee split in API responses
type FeeBreakdownResponse struct {
	ServiceAmount    int64 `json:"service_amount"`
	BasePlatformFee  int64 `json:"base_platform_fee"`
	GuestSurcharge   int64 `json:"guest_surcharge"`
	TotalPlatformFee int64 `json:"total_platform_fee"`
	ProviderPayout   int64 `json:"provider_payout"`
	TotalAmount      int64 `json:"total_amount"`
}

// PaymentSetupResponse represents a completed checkout setup
type PaymentSetupResponse struct {
	BookingID               string               `json:"booking_id"`
	TransactionID           string               `json:"transaction_id"`
	BookingStatus           string               `json:"booking_status"`
	TransactionStatus       string               `json:"transaction_status"`
	ExternalReference       string               `json:"external_reference"`
	ClientConfirmationToken string               `json:"client_confirmation_token"`
	FeeBreakdown            FeeBreakdownResponse `json:"fee_breakdown"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID                 string `json:"id"`
	CustomerID         string `json:"customer_id"`
	ProviderID         string `json:"provider_id"`
	ServiceAmount      int64  `json:"service_amount"`
	Currency           string `json:"currency"`
	Status             string `json:"status"`
	ExternalPaymentRef string `json:"external_payment_ref,omitempty"`
	GuestCheckout      bool   `json:"guest_checkout"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// TransactionResponse represents a payment transaction in API responses
type TransactionResponse struct {
	ID                string `json:"id"`
	BookingID         string `json:"booking_id"`
	Amount            int64  `json:"amount"`
	PlatformFee       int64  `json:"platform_fee"`
	ProviderPayout    int64  `json:"provider_payout"`
	Currency          string `json:"currency"`
	ExternalReference string `json:"external_reference,omitempty"`
	Status            string `json:"status"`
	FailureReason     string `json:"failure_reason,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// PaymentResponse pairs a booking with its transaction in API responses
type PaymentResponse struct {
	Booking     BookingResponse      `json:"booking"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// PaymentWebhookRequest represents an inbound processor payment event
type PaymentWebhookRequest struct {
	EventID           string    `json:"event_id" binding:"required"`
	EventType         string    `json:"event_type" binding:"required,oneof=payment.succeeded payment.failed payment.refunded"`
	ExternalReference string    `json:"external_reference" binding:"required"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	FailureReason     string    `json:"failure_reason,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// TriggerRunRequest represents an operator request to reconcile a date
type TriggerRunRequest struct {
	Date    string `json:"date" binding:"required"`
	RunType string `json:"run_type,omitempty" binding:"omitempty,oneof=DAILY MANUAL"`
	Force   bool   `json:"force,omitempty"`
}

// DiscrepancyResponse represents one ledger disagreement in API responses
type DiscrepancyResponse struct {
	Type              string `json:"type"`
	ExternalReference string `json:"external_reference"`
	ExternalAmount    int64  `json:"external_amount"`
	InternalAmount    int64  `json:"internal_amount"`
	Difference        int64  `json:"difference"`
	Severity          string `json:"severity"`
}

// RunResponse represents a reconciliation run in API responses
type RunResponse struct {
	RunID           string                `json:"run_id"`
	RunDate         string                `json:"run_date"`
	RunType         string                `json:"run_type"`
	Revision        int                   `json:"revision"`
	Status          string                `json:"status"`
	Matched         int                   `json:"matched"`
	Unmatched       int                   `json:"unmatched"`
	TotalReconciled int64                 `json:"total_reconciled"`
	Discrepancies   []DiscrepancyResponse `json:"discrepancies"`
	TriggeredBy     string                `json:"triggered_by,omitempty"`
	ErrorMessage    string                `json:"error_message,omitempty"`
	StartedAt       string                `json:"started_at"`
	CompletedAt     string                `json:"completed_at,omitempty"`
}

// ListRunsParams represents query parameters for listing reconciliation runs
type ListRunsParams struct {
	From    string `form:"from" binding:"required"`
	To      string `form:"to" binding:"required"`
	Page    int    `form:"page,default=1" binding:"min=1"`
	PerPage int    `form:"per_page,default=10" binding:"min=1,max=100"`
}
