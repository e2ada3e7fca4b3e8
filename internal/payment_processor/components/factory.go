package components

import (
	"log/slog"

	"github.com/handyhub-payment-engine/internal/config"
	"github.com/handyhub-payment-engine/internal/domain/booking"
	"github.com/handyhub-payment-engine/internal/domain/transaction"
	"github.com/handyhub-payment-engine/internal/payment_processor/service"
	"github.com/handyhub-payment-engine/internal/platform/persistence"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	transactionRepo transaction.Repository,
	bookingRepo booking.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewEventValidator(logger)
	applier := NewTransitionApplier(transactionRepo, bookingRepo, logger)

	baseService := service.NewProcessingService(
		pgDB,
		validator,
		applier,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
