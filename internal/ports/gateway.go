package ports

import (
	"context"

	"invoicehub-sync/internal/domain"
)

// Credential is the raw secret material a gateway authenticates with. The
// sync core receives it from the credential store and must never log or
// persist it.
type Credential struct {
	// Token is the API token (BaseLinker) or OAuth access token
	// (Allegro, Shopify).
	Token string
	// AccountID optionally scopes the token to one marketplace account.
	AccountID string
}

// OrderGateway is the transport-level client for one marketplace API. All
// failures are classified into domain.SyncError kinds: auth failures are
// permanent, everything else transport-level is transient.
type OrderGateway interface {
	// Provider identifies which marketplace this gateway talks to.
	Provider() domain.Provider

	// VerifyCredential performs a lightweight authenticated call to check
	// the credential is valid, used when connecting an integration.
	VerifyCredential(ctx context.Context, cred Credential) (externalAccountID string, err error)

	// FetchOrders retrieves candidate orders matching the filter. Bounded by
	// domain.GatewayTimeout.
	FetchOrders(ctx context.Context, cred Credential, filter domain.OrderFilter) ([]domain.ExternalOrder, error)
}

// GatewayResolver returns the gateway for a provider.
type GatewayResolver interface {
	Gateway(provider domain.Provider) (OrderGateway, error)
}

// CredentialStore holds encrypted credential material per connection and
// hands out decrypted secrets only to the sync core.
type CredentialStore interface {
	// Store encrypts and persists credential material, returning the opaque
	// reference recorded on the connection.
	Store(ctx context.Context, tenantID string, cred Credential) (ref string, err error)

	// Get resolves a credential reference to the raw secret.
	Get(ctx context.Context, ref string) (Credential, error)

	// Rotate replaces the secret behind an existing reference.
	Rotate(ctx context.Context, ref string, cred Credential) error

	// Invalidate removes the secret, used when a connection is torn down.
	Invalidate(ctx context.Context, ref string) error
}

// EncryptionService encrypts secrets at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
