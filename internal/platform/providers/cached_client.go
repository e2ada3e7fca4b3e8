package providers

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/domain/provider"
)

// CachedClient wraps a provider.Client with a TTL cache. Cache faults degrade
// to a direct lookup instead of failing the payment path.
type CachedClient struct {
	inner  provider.Client
	cache  provider.Cache
	logger *slog.Logger
}

// NewCachedClient creates a caching decorator around a provider client
func NewCachedClient(logger *slog.Logger, inner provider.Client, cache provider.Cache) *CachedClient {
	return &CachedClient{
		inner:  inner,
		cache:  cache,
		logger: logger,
	}
}

// GetOnboardingStatus returns the cached status when present, otherwise asks
// the inner client and stores the answer. Not-yet-capable statuses are cached
// like capable ones; unknown providers are not cached at all.
func (c *CachedClient) GetOnboardingStatus(ctx context.Context, providerID uuid.UUID) (*provider.OnboardingStatus, error) {
	status, found, err := c.cache.Get(ctx, providerID)
	if err != nil {
		c.logger.Warn("Onboarding cache read failed, falling back to direct lookup",
			"provider_id", providerID.String(),
			"error", err)
	}
	if found {
		return status, nil
	}

	status, err = c.inner.GetOnboardingStatus(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, providerID, status); err != nil {
		c.logger.Warn("Onboarding cache write failed",
			"provider_id", providerID.String(),
			"error", err)
	}

	return status, nil
}

var _ provider.Client = (*CachedClient)(nil)
