// Package processor provides the HTTP client for the external payment
// processor: destination-charge authorization, refunds, and the settlement
// ledger listings consumed by reconciliation.
package processor

import (
	"fmt"
	"strconv"
)

// AuthorizationError is returned when the processor rejects or cannot serve a
// charge or refund call. Transient marks failures worth retrying with the same
// idempotency key (network faults, 5xx, rate limits); everything else is a
// permanent decline.
type AuthorizationError struct {
	StatusCode int
	Code       string
	Message    string
	Transient  bool
	Err        error
}

func (e *AuthorizationError) Error() string {
	msg := "processor call failed"
	if e.StatusCode != 0 {
		msg += " (status " + strconv.Itoa(e.StatusCode) + ")"
	}
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// LedgerFetchError is returned when a settlement ledger page could not be
// fetched within the bounded retry budget. It aborts the reconciliation run
// that depends on the listing.
type LedgerFetchError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *LedgerFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *LedgerFetchError) Unwrap() error {
	return e.Err
}
