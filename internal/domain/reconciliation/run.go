package reconciliation

import (
	"time"

	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// DateFormat is the canonical layout for a run's target date
const DateFormat = "2006-01-02"

// Discrepancy is a classified disagreement between the processor's ledger and
// the internal transaction ledger for one external reference
type Discrepancy struct {
	Type              shared.DiscrepancyType     `json:"type" bson:"type"`
	ExternalReference string                     `json:"external_reference" bson:"external_reference"`
	ExternalAmount    int64                      `json:"external_amount" bson:"external_amount"` // Stored in cents/minor units
	InternalAmount    int64                      `json:"internal_amount" bson:"internal_amount"`
	Difference        int64                      `json:"difference" bson:"difference"`
	Severity          shared.DiscrepancySeverity `json:"severity" bson:"severity"`
}

// Run is one reconciliation execution for a (date, runType) pair. Runs are
// append-only: forcing or retrying a date creates the next revision instead
// of mutating an earlier document.
type Run struct {
	ID              uuid.UUID        `json:"id" bson:"_id"`
	RunDate         string           `json:"run_date" bson:"run_date"` // DateFormat, UTC
	RunType         shared.RunType   `json:"run_type" bson:"run_type"`
	Revision        int              `json:"revision" bson:"revision"`
	Status          shared.RunStatus `json:"status" bson:"status"`
	MatchedCount    int              `json:"matched_count" bson:"matched_count"`
	UnmatchedCount  int              `json:"unmatched_count" bson:"unmatched_count"`
	TotalReconciled int64            `json:"total_reconciled" bson:"total_reconciled"`
	Discrepancies   []Discrepancy    `json:"discrepancies" bson:"discrepancies"`
	TriggeredBy     string           `json:"triggered_by,omitempty" bson:"triggered_by,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty" bson:"error_message,omitempty"`
	StartedAt       time.Time        `json:"started_at" bson:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	AlertedAt       *time.Time       `json:"alerted_at,omitempty" bson:"alerted_at,omitempty"`
}

// NewRun creates a run in running state, ready to be persisted as the guard
// against concurrent executions for the same (date, runType, revision)
func NewRun(runDate string, runType shared.RunType, revision int, triggeredBy string) *Run {
	return &Run{
		ID:            uuid.New(),
		RunDate:       runDate,
		RunType:       runType,
		Revision:      revision,
		Status:        shared.RunStatusRunning,
		Discrepancies: []Discrepancy{},
		TriggeredBy:   triggeredBy,
		StartedAt:     time.Now().UTC(),
	}
}

// Complete records the matching outcome on the run
func (r *Run) Complete(matched, unmatched int, totalReconciled int64, discrepancies []Discrepancy) {
	now := time.Now().UTC()
	r.Status = shared.RunStatusCompleted
	r.MatchedCount = matched
	r.UnmatchedCount = unmatched
	r.TotalReconciled = totalReconciled
	if discrepancies == nil {
		discrepancies = []Discrepancy{}
	}
	r.Discrepancies = discrepancies
	r.CompletedAt = &now
}

// Fail marks the run failed, keeping it on record so the failure is auditable
// and a later retry for the same date is allowed
func (r *Run) Fail(message string) {
	now := time.Now().UTC()
	r.Status = shared.RunStatusFailed
	r.ErrorMessage = message
	r.CompletedAt = &now
}

// CriticalCount returns how many discrepancies were graded critical
func (r *Run) CriticalCount() int {
	n := 0
	for _, d := range r.Discrepancies {
		if d.Severity == shared.SeverityCritical {
			n++
		}
	}
	return n
}

// Blocking reports whether this run prevents another execution for its
// (date, runType): failed runs never block a retry, anything else does
func (r *Run) Blocking() bool {
	return r.Status != shared.RunStatusFailed
}

// Window returns the UTC day window [start, end) covered by the run date
func (r *Run) Window() (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DateFormat, r.RunDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}
