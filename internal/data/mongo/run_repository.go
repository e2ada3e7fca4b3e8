package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/handyhub-payment-engine/internal/domain/reconciliation"
	"github.com/handyhub-payment-engine/internal/domain/shared"
)

const (
	// RunCollectionName is the name of the reconciliation run collection in MongoDB
	RunCollectionName = "reconciliation_runs"
)

// RunRepository implements the reconciliation.Repository interface for MongoDB
type RunRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewRunRepository creates a new MongoDB reconciliation run repository
func NewRunRepository(logger *slog.Logger, db *mongo.Database) *RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique (run_date, run_type, revision) index that
// turns concurrent run creation into a single-winner race. Called once at
// service startup.
func (r *RunRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(RunCollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "run_date", Value: 1},
				{Key: "run_type", Value: 1},
				{Key: "revision", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("run_date_type_revision"),
		},
		{
			Keys:    bson.D{{Key: "started_at", Value: -1}},
			Options: options.Index().SetName("started_at_desc"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		r.logger.Error("Failed to create reconciliation run indexes", "error", err)
		return fmt.Errorf("failed to create reconciliation run indexes: %w", err)
	}

	return nil
}

// Create inserts a new run document. A unique index collision on
// (run_date, run_type, revision) is reported as ErrDuplicateRun so the losing
// caller can load the winner instead of running twice.
func (r *RunRepository) Create(ctx context.Context, run *reconciliation.Run) error {
	collection := r.db.Collection(RunCollectionName)

	_, err := collection.InsertOne(ctx, run)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reconciliation.ErrDuplicateRun{RunDate: run.RunDate, RunType: run.RunType}
		}
		r.logger.Error("Failed to create reconciliation run",
			"run_date", run.RunDate,
			"run_type", string(run.RunType),
			"error", err)
		return fmt.Errorf("failed to create reconciliation run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by its ID.
// Returns ErrRunNotFound if no run exists with the given ID.
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*reconciliation.Run, error) {
	collection := r.db.Collection(RunCollectionName)

	filter := bson.M{"_id": id}
	var run reconciliation.Run
	err := collection.FindOne(ctx, filter).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reconciliation.ErrRunNotFound{RunID: id}
		}
		r.logger.Error("Failed to get reconciliation run",
			"run_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get reconciliation run: %w", err)
	}

	return &run, nil
}

// GetLatestByDateAndType retrieves the highest-revision run for a date and type.
// Returns nil if the pair has never been reconciled, enabling first-run detection.
func (r *RunRepository) GetLatestByDateAndType(ctx context.Context, runDate string, runType shared.RunType) (*reconciliation.Run, error) {
	collection := r.db.Collection(RunCollectionName)

	filter := bson.M{"run_date": runDate, "run_type": runType}
	opts := options.FindOne().SetSort(bson.M{"revision": -1})

	var run reconciliation.Run
	err := collection.FindOne(ctx, filter, opts).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No run recorded yet for this date and type
		}
		r.logger.Error("Failed to get latest reconciliation run",
			"run_date", runDate,
			"run_type", string(runType),
			"error", err)
		return nil, fmt.Errorf("failed to get latest reconciliation run: %w", err)
	}

	return &run, nil
}

// ListByDateRange retrieves paginated runs whose run date falls inside the range.
// Results are sorted by start time in descending order (newest first).
func (r *RunRepository) ListByDateRange(ctx context.Context, fromDate, toDate string, limit, offset int) ([]*reconciliation.Run, error) {
	collection := r.db.Collection(RunCollectionName)

	filter := bson.M{
		"run_date": bson.M{
			"$gte": fromDate,
			"$lte": toDate,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"started_at": -1}). // Sort by started_at in descending order
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list reconciliation runs",
			"from_date", fromDate,
			"to_date", toDate,
			"error", err)
		return nil, fmt.Errorf("failed to list reconciliation runs: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []*reconciliation.Run
	if err := cursor.All(ctx, &runs); err != nil {
		r.logger.Error("Failed to decode reconciliation runs",
			"from_date", fromDate,
			"to_date", toDate,
			"error", err)
		return nil, fmt.Errorf("failed to decode reconciliation runs: %w", err)
	}

	return runs, nil
}

// Complete persists the matching outcome carried on the run.
// Returns ErrRunNotFound if the run doesn't exist.
func (r *RunRepository) Complete(ctx context.Context, run *reconciliation.Run) error {
	collection := r.db.Collection(RunCollectionName)

	filter := bson.M{"_id": run.ID}
	update := bson.M{
		"$set": bson.M{
			"status":           run.Status,
			"matched_count":    run.MatchedCount,
			"unmatched_count":  run.UnmatchedCount,
			"total_reconciled": run.TotalReconciled,
			"discrepancies":    run.Discrepancies,
			"completed_at":     run.CompletedAt,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to complete reconciliation run",
			"run_id", run.ID.String(),
			"error", err)
		return fmt.Errorf("failed to complete reconciliation run: %w", err)
	}

	if result.MatchedCount == 0 {
		return reconciliation.ErrRunNotFound{RunID: run.ID}
	}

	return nil
}

// Fail marks the run failed and records the cause.
// Returns ErrRunNotFound if the run doesn't exist.
func (r *RunRepository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	collection := r.db.Collection(RunCollectionName)

	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"status":        shared.RunStatusFailed,
			"error_message": message,
			"completed_at":  time.Now().UTC(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to mark reconciliation run failed",
			"run_id", id.String(),
			"error", err)
		return fmt.Errorf("failed to mark reconciliation run failed: %w", err)
	}

	if result.MatchedCount == 0 {
		return reconciliation.ErrRunNotFound{RunID: id}
	}

	return nil
}

// MarkAlerted claims the alert slot for a run. The filter only matches a
// document whose alerted_at is still unset, so exactly one caller per run id
// observes true.
func (r *RunRepository) MarkAlerted(ctx context.Context, id uuid.UUID) (bool, error) {
	collection := r.db.Collection(RunCollectionName)

	filter := bson.M{"_id": id, "alerted_at": bson.M{"$exists": false}}
	update := bson.M{
		"$set": bson.M{
			"alerted_at": time.Now().UTC(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to mark reconciliation run alerted",
			"run_id", id.String(),
			"error", err)
		return false, fmt.Errorf("failed to mark reconciliation run alerted: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

var _ reconciliation.Repository = (*RunRepository)(nil)
