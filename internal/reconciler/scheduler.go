package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/robfig/cron/v3"

	"github.com/handyhub-payment-engine/internal/config"
	"github.com/handyhub-payment-engine/internal/domain/reconciliation"
	"github.com/handyhub-payment-engine/internal/domain/shared"
	"github.com/handyhub-payment-engine/internal/platform/persistence"
)

// Scheduler fires daily reconciliation on a cron schedule. Replicas coordinate
// through a Redis lock, so only one instance reconciles per tick; the run
// storage's unique index stays the final guard against double execution.
type Scheduler struct {
	cron    *cron.Cron
	engine  *Engine
	locker  *redislock.Client
	lockKey string
	lockTTL time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a scheduler bound to the configured cron expression
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, engine *Engine, redisDB *persistence.RedisDB) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:    c,
		engine:  engine,
		locker:  redislock.New(redisDB.Client()),
		lockKey: cfg.LockKey,
		lockTTL: cfg.LockTTL,
		logger:  logger,
	}

	if _, err := c.AddFunc(cfg.CronSchedule, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Reconciliation scheduler started", "lock_key", s.lockKey)
}

// Stop stops the scheduler and waits for an in-flight tick to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Reconciliation scheduler stopped")
}

// tick runs one scheduled reconciliation. Work is bounded by the lock TTL.
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
	defer cancel()

	lock, err := s.locker.Obtain(ctx, s.lockKey, s.lockTTL, nil)
	if err == redislock.ErrNotObtained {
		s.logger.Info("Another reconciler holds the schedule lock, skipping tick",
			"lock_key", s.lockKey)
		return
	}
	if err != nil {
		s.logger.Error("Failed to obtain schedule lock",
			"lock_key", s.lockKey,
			"error", err)
		return
	}
	defer func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			s.logger.Warn("Failed to release schedule lock",
				"lock_key", s.lockKey,
				"error", releaseErr)
		}
	}()

	s.ReconcilePreviousDay(ctx)
}

// ReconcilePreviousDay reconciles the previous UTC day as a daily run
func (s *Scheduler) ReconcilePreviousDay(ctx context.Context) {
	runDate := time.Now().UTC().AddDate(0, 0, -1).Format(reconciliation.DateFormat)
	if _, err := s.engine.Reconcile(ctx, runDate, shared.RunTypeDaily, false, "scheduler"); err != nil {
		s.logger.Error("Scheduled reconciliation failed",
			"run_date", runDate,
			"error", err)
	}
}
