// Package providers provides the HTTP client for the provider-management
// service, which owns connected merchant account onboarding.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/handyhub-payment-engine/internal/config"
	"github.com/handyhub-payment-engine/internal/domain/provider"
)

// HTTPClient implements the provider.Client interface against the
// provider-management REST API
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a provider-management client from configuration
func NewHTTPClient(logger *slog.Logger, cfg *config.ProvidersConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// GetOnboardingStatus fetches the connected account state for a provider.
// Returns provider.ErrProviderNotFound when the service does not know the id.
func (c *HTTPClient) GetOnboardingStatus(ctx context.Context, providerID uuid.UUID) (*provider.OnboardingStatus, error) {
	endpoint := c.baseURL + "/internal/v1/providers/" + providerID.String() + "/onboarding"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build onboarding request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to reach provider-management service", "provider_id", providerID.String(), "error", err)
		return nil, fmt.Errorf("failed to fetch onboarding status: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, provider.ErrProviderNotFound{ProviderID: providerID}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("provider-management api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status provider.OnboardingStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode onboarding status: %w", err)
	}

	return &status, nil
}

var _ provider.Client = (*HTTPClient)(nil)
