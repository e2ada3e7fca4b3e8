package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/handyhub-payment-engine/internal/domain/provider"
	"github.com/handyhub-payment-engine/internal/platform/persistence"
)

// onboardingKeyPrefix namespaces onboarding entries in the shared Redis instance
const onboardingKeyPrefix = "provider:onboarding:"

// OnboardingCache implements the provider.Cache interface on Redis. Entries
// carry the full onboarding status, including not-yet-capable accounts, so a
// repeated checkout against an unfinished account does not hammer the
// provider-management service either.
type OnboardingCache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewOnboardingCache creates a Redis-backed onboarding cache with the given TTL
func NewOnboardingCache(logger *slog.Logger, db *persistence.RedisDB, ttl time.Duration) provider.Cache {
	return &OnboardingCache{
		client: db.Client(),
		logger: logger,
		ttl:    ttl,
	}
}

func onboardingKey(providerID uuid.UUID) string {
	return onboardingKeyPrefix + providerID.String()
}

// Get returns the cached onboarding status for a provider. The second return
// value reports whether the entry existed.
func (c *OnboardingCache) Get(ctx context.Context, providerID uuid.UUID) (*provider.OnboardingStatus, bool, error) {
	val, err := c.client.Get(ctx, onboardingKey(providerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		c.logger.Error("Failed to read onboarding cache", "provider_id", providerID.String(), "error", err)
		return nil, false, fmt.Errorf("failed to read onboarding cache: %w", err)
	}

	var status provider.OnboardingStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		c.logger.Error("Failed to decode onboarding cache entry", "provider_id", providerID.String(), "error", err)
		return nil, false, fmt.Errorf("failed to decode onboarding cache entry: %w", err)
	}

	return &status, true, nil
}

// Set stores the onboarding status for a provider under the configured TTL
func (c *OnboardingCache) Set(ctx context.Context, providerID uuid.UUID, status *provider.OnboardingStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode onboarding cache entry: %w", err)
	}

	if err := c.client.Set(ctx, onboardingKey(providerID), data, c.ttl).Err(); err != nil {
		c.logger.Error("Failed to write onboarding cache", "provider_id", providerID.String(), "error", err)
		return fmt.Errorf("failed to write onboarding cache: %w", err)
	}

	return nil
}
