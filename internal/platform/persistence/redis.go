package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/handyhub-payment-engine/internal/config"
)

type RedisDB struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisDB(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Connected to Redis")

	return &RedisDB{
		client: client,
		logger: logger,
	}, nil
}

func (r *RedisDB) Client() *redis.Client {
	return r.client
}

func (r *RedisDB) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	r.logger.Info("Closed Redis connection")
	return nil
}
