package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/handyhub-payment-engine/internal/alerting"
	"github.com/handyhub-payment-engine/internal/config"
	"github.com/handyhub-payment-engine/internal/data/mongo"
	"github.com/handyhub-payment-engine/internal/data/postgres"
	"github.com/handyhub-payment-engine/internal/domain/reconciliation"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/logger"
	"github.com/handyhub-payment-engine/internal/platform/persistence"
	"github.com/handyhub-payment-engine/internal/platform/processor"
	"github.com/handyhub-payment-engine/internal/reconciler"
)

func main() {
	runOnce := flag.Bool("run-once", false, "execute a single reconciliation run and exit")
	runDate := flag.String("date", "", "run date as YYYY-MM-DD; defaults to the previous UTC day (run-once only)")
	flag.Parse()

	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciler",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"run_once", *runOnce,
	)

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

	// Initialize repositories
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	runRepo := mongo.NewRunRepository(log, mongoDB.Database())
	if err := runRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure reconciliation run indexes", "error", err)
		os.Exit(1)
	}

	// Initialize the engine with its external dependencies
	processorClient := processor.NewClient(log, &cfg.Processor)
	dispatcher := alerting.NewDispatcher(log, &cfg.Alerting, runRepo)
	engine := reconciler.NewEngine(log, &cfg.Reconciliation, runRepo, transactionRepo, processorClient, dispatcher)

	if *runOnce {
		exitCode := executeSingleRun(appCtx, log, engine, *runDate)

		postgresDB.Close()
		if err := redisDB.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
		if err := mongoDB.Close(appCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
		os.Exit(exitCode)
	}

	scheduler, err := reconciler.NewScheduler(log, &cfg.Scheduler, engine, redisDB)
	if err != nil {
		log.Error("Failed to initialize scheduler", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	scheduler.Stop()

	postgresDB.Close()

	if err = redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err != nil {
		log.Error("Reconciler shutdown completed with errors")
	} else {
		log.Info("Reconciler shutdown completed successfully")
	}
}

// executeSingleRun reconciles one date and reports the result through the exit
// code, so the binary can back a cron job or an operator invocation.
func executeSingleRun(ctx context.Context, log *slog.Logger, engine *reconciler.Engine, date string) int {
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format(reconciliation.DateFormat)
	}
	if _, err := time.Parse(reconciliation.DateFormat, date); err != nil {
		log.Error("Invalid run date", "date", date, "error", err)
		return 1
	}

	run, err := engine.Reconcile(ctx, date, shared.RunTypeManual, false, "cli")
	if err != nil {
		log.Error("Reconciliation run failed", "run_date", date, "error", err)
		return 1
	}

	log.Info("Reconciliation run finished",
		"run_id", run.ID.String(),
		"run_date", run.RunDate,
		"status", string(run.Status),
		"matched", run.MatchedCount,
		"unmatched", run.UnmatchedCount,
		"critical", run.CriticalCount(),
	)
	return 0
}
