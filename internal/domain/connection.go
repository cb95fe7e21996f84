package domain

import "time"

// Provider identifies the external marketplace a connection talks to.
type Provider string

const (
	ProviderBaseLinker Provider = "baselinker"
	ProviderAllegro    Provider = "allegro"
	ProviderShopify    Provider = "shopify"
)

// IsValid returns true if the provider is one we have a gateway for.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderBaseLinker, ProviderAllegro, ProviderShopify:
		return true
	default:
		return false
	}
}

// String returns the string representation of Provider.
func (p Provider) String() string {
	return string(p)
}

// FailureThreshold is the number of consecutive connection-level failures
// after which a connection is automatically deactivated. Per-order failures
// never count toward it.
const FailureThreshold = 5

// IntegrationConnection represents one tenant's connection to one external
// marketplace account. It is the only mutable shared state in the sync core:
// every sync attempt updates its failure counter and last-sync bookkeeping.
type IntegrationConnection struct {
	ID                      string              `json:"id"`
	TenantID                string              `json:"tenant_id"`
	CompanyID               string              `json:"company_id"`
	Provider                Provider            `json:"provider"`
	ExternalAccountID       string              `json:"external_account_id"`
	CredentialRef           string              `json:"-"` // opaque reference into the credential store, never the raw secret
	IsActive                bool                `json:"is_active"`
	ConsecutiveFailureCount int                 `json:"consecutive_failure_count"`
	LastSyncAt              *time.Time          `json:"last_sync_at,omitempty"`
	LastSyncError           string              `json:"last_sync_error,omitempty"`
	Settings                IntegrationSettings `json:"settings"`
	CreatedAt               time.Time           `json:"created_at"`
	UpdatedAt               time.Time           `json:"updated_at"`
}

// RecordFailure increments the consecutive failure counter and deactivates
// the connection once the threshold is reached. Returns true if this failure
// tripped the breaker.
func (c *IntegrationConnection) RecordFailure(message string) bool {
	c.ConsecutiveFailureCount++
	c.LastSyncError = message
	if c.ConsecutiveFailureCount >= FailureThreshold && c.IsActive {
		c.IsActive = false
		return true
	}
	return false
}

// RecordSuccess resets the failure counter after a run that completed without
// a connection-level failure. Per-order errors do not prevent this reset.
func (c *IntegrationConnection) RecordSuccess(at time.Time) {
	c.ConsecutiveFailureCount = 0
	c.LastSyncError = ""
	c.LastSyncAt = &at
}

// Reactivate re-enables a deactivated connection and clears its failure
// state. This is the only path from disabled back to active.
func (c *IntegrationConnection) Reactivate() {
	c.IsActive = true
	c.ConsecutiveFailureCount = 0
	c.LastSyncError = ""
}
