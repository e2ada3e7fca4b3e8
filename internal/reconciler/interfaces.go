package reconciler

import (
	"context"
	"time"

	"github.com/handyhub-payment-engine/internal/domain/reconciliation"
	"github.com/handyhub-payment-engine/internal/platform/processor"
)

// ExternalLedger reads the processor's own transaction records for a window.
// Implementations must return the complete set for the window, not a first page.
type ExternalLedger interface {
	ListTransactions(ctx context.Context, start, end time.Time) ([]processor.LedgerTransaction, error)
}

// Alerter delivers the operator notification for a finished run
type Alerter interface {
	Notify(ctx context.Context, run *reconciliation.Run, reason string)
}
