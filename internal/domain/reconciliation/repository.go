package reconciliation

import (
	"context"

	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// Repository manages reconciliation run persistence
type Repository interface {
	// Create inserts a new run; a concurrent insert for the same
	// (date, runType, revision) surfaces as ErrDuplicateRun
	Create(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)

	// GetLatestByDateAndType returns the highest-revision run for the pair,
	// or nil without error when the pair has never been reconciled
	GetLatestByDateAndType(ctx context.Context, runDate string, runType shared.RunType) (*Run, error)
	ListByDateRange(ctx context.Context, fromDate, toDate string, limit, offset int) ([]*Run, error)

	// Complete persists the matching outcome carried on the run
	Complete(ctx context.Context, run *Run) error
	Fail(ctx context.Context, id uuid.UUID, message string) error

	// MarkAlerted claims the single alert slot for a run; it returns true for
	// exactly one caller per run id
	MarkAlerted(ctx context.Context, id uuid.UUID) (bool, error)
}

// ErrRunNotFound indicates missing reconciliation run
type ErrRunNotFound struct {
	RunID uuid.UUID
}

func (e ErrRunNotFound) Error() string {
	return "reconciliation run not found: " + e.RunID.String()
}

// Is implements the errors.Is interface for ErrRunNotFound
func (e ErrRunNotFound) Is(target error) bool {
	t, ok := target.(ErrRunNotFound)
	if !ok {
		return false
	}
	if t.RunID == uuid.Nil {
		return true
	}
	return e.RunID == t.RunID
}

// ErrDuplicateRun indicates another run already holds (date, runType, revision)
type ErrDuplicateRun struct {
	RunDate string
	RunType shared.RunType
}

func (e ErrDuplicateRun) Error() string {
	return "reconciliation run already exists for " + e.RunDate + " (" + string(e.RunType) + ")"
}

// Is implements the errors.Is interface for ErrDuplicateRun
func (e ErrDuplicateRun) Is(target error) bool {
	t, ok := target.(ErrDuplicateRun)
	if !ok {
		return false
	}
	if t.RunDate == "" {
		return true
	}
	return e.RunDate == t.RunDate && e.RunType == t.RunType
}
