package shared

// BookingStatus defines booking lifecycle states
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// TransactionStatus defines payment transaction states
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusSucceeded TransactionStatus = "SUCCEEDED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

// PaymentEventType defines processor webhook event categories
type PaymentEventType string

const (
	PaymentEventTypeSucceeded PaymentEventType = "PAYMENT_SUCCEEDED"
	PaymentEventTypeFailed    PaymentEventType = "PAYMENT_FAILED"
	PaymentEventTypeRefunded  PaymentEventType = "PAYMENT_REFUNDED"
)

// FailureReason defines payment failure categories
type FailureReason string

const (
	FailureReasonProcessorDeclined FailureReason = "PROCESSOR_DECLINED"
	FailureReasonUnknownError      FailureReason = "UNKNOWN_ERROR"
)

// RunType defines how a reconciliation run was initiated
type RunType string

const (
	RunTypeDaily  RunType = "DAILY"
	RunTypeManual RunType = "MANUAL"
)

// RunStatus defines reconciliation run states
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// DiscrepancyType classifies a disagreement between the two ledgers
type DiscrepancyType string

const (
	DiscrepancyTypeAmountMismatch     DiscrepancyType = "AMOUNT_MISMATCH"
	DiscrepancyTypeMissingInDB        DiscrepancyType = "MISSING_IN_DB"
	DiscrepancyTypeMissingInProcessor DiscrepancyType = "MISSING_IN_PROCESSOR"
)

// DiscrepancySeverity grades a discrepancy for alerting purposes
type DiscrepancySeverity string

const (
	SeverityWarning  DiscrepancySeverity = "WARNING"
	SeverityCritical DiscrepancySeverity = "CRITICAL"
)
