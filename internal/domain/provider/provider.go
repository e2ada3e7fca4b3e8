package provider

import (
	"context"

	"github.com/google/uuid"
)

// OnboardingStatus is the provider-management view of a provider's connected
// merchant account with the payment processor
type OnboardingStatus struct {
	ConnectedAccountID string `json:"connected_account_id"`
	PayoutsEnabled     bool   `json:"payouts_enabled"`
	ChargesEnabled     bool   `json:"charges_enabled"`
}

// PayoutCapable reports whether the account can take part in a split charge
func (s *OnboardingStatus) PayoutCapable() bool {
	return s.ConnectedAccountID != "" && s.PayoutsEnabled && s.ChargesEnabled
}

// Client resolves onboarding status from the provider-management service
type Client interface {
	GetOnboardingStatus(ctx context.Context, providerID uuid.UUID) (*OnboardingStatus, error)
}

// Cache stores onboarding lookups for a bounded TTL
type Cache interface {
	Get(ctx context.Context, providerID uuid.UUID) (*OnboardingStatus, bool, error)
	Set(ctx context.Context, providerID uuid.UUID, status *OnboardingStatus) error
}

// ErrProviderNotFound indicates the provider-management service does not know
// the provider
type ErrProviderNotFound struct {
	ProviderID uuid.UUID
}

func (e ErrProviderNotFound) Error() string {
	return "provider not found: " + e.ProviderID.String()
}

// Is implements the errors.Is interface for ErrProviderNotFound
func (e ErrProviderNotFound) Is(target error) bool {
	t, ok := target.(ErrProviderNotFound)
	if !ok {
		return false
	}
	if t.ProviderID == uuid.Nil {
		return true
	}
	return e.ProviderID == t.ProviderID
}

// ErrProviderNotOnboarded indicates the provider cannot receive payouts yet
type ErrProviderNotOnboarded struct {
	ProviderID uuid.UUID
	Reason     string
}

func (e ErrProviderNotOnboarded) Error() string {
	msg := "provider not onboarded for payouts: " + e.ProviderID.String()
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is implements the errors.Is interface for ErrProviderNotOnboarded
func (e ErrProviderNotOnboarded) Is(target error) bool {
	t, ok := target.(ErrProviderNotOnboarded)
	if !ok {
		return false
	}
	if t.ProviderID == uuid.Nil {
		return true
	}
	return e.ProviderID == t.ProviderID
}
