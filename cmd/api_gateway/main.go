package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/handyhub-payment-engine/internal/alerting"
	"github.com/handyhub-payment-engine/internal/api_gateway"
	"github.com/handyhub-payment-engine/internal/api_gateway/service"
	"github.com/handyhub-payment-engine/internal/config"
	"github.com/handyhub-payment-engine/internal/data/mongo"
	"github.com/handyhub-payment-engine/internal/data/postgres"
	"github.com/handyhub-payment-engine/internal/data/redis"
	"github.com/handyhub-payment-engine/internal/domain/fees"
	"github.com/handyhub-payment-engine/internal/logger"
	"github.com/handyhub-payment-engine/internal/platform/messaging/producers"
	"github.com/handyhub-payment-engine/internal/platform/persistence"
	"github.com/handyhub-payment-engine/internal/platform/processor"
	"github.com/handyhub-payment-engine/internal/platform/providers"
	"github.com/handyhub-payment-engine/internal/reconciler"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisDB, err := persistence.NewRedisDB(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the webhook pipeline
	kafkaProducer, err := producers.NewPaymentEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize payment event Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	bookingRepo := postgres.NewBookingRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	runRepo := mongo.NewRunRepository(log, mongoDB.Database())
	if err := runRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure reconciliation run indexes", "error", err)
		os.Exit(1)
	}

	// Initialize external clients
	processorClient := processor.NewClient(log, &cfg.Processor)
	onboardingCache := redis.NewOnboardingCache(log, redisDB, cfg.Providers.CacheTTL)
	providerClient := providers.NewCachedClient(log, providers.NewHTTPClient(log, &cfg.Providers), onboardingCache)

	// Initialize fee calculator
	calculator, err := fees.NewCalculator(cfg.Fees.PlatformFeePercent, cfg.Fees.GuestSurchargePercent)
	if err != nil {
		log.Error("Invalid fee configuration", "error", err)
		os.Exit(1)
	}

	// Initialize reconciliation engine for operator-triggered runs
	dispatcher := alerting.NewDispatcher(log, &cfg.Alerting, runRepo)
	engine := reconciler.NewEngine(log, &cfg.Reconciliation, runRepo, transactionRepo, processorClient, dispatcher)

	// Initialize services
	paymentService := service.NewPaymentService(log, postgresDB, bookingRepo, transactionRepo, providerClient, processorClient, calculator)
	webhookService := service.NewWebhookService(log, kafkaProducer)
	reconciliationService := service.NewReconciliationService(log, engine, runRepo)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, paymentService, webhookService, reconciliationService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
