package ports

import (
	"context"

	"invoicehub-sync/internal/domain"
)

// ConnectionRepository defines the interface for integration connection
// persistence.
type ConnectionRepository interface {
	// Create persists a new connection.
	Create(ctx context.Context, conn *domain.IntegrationConnection) error

	// GetByID retrieves a connection by its ID, returning
	// domain.ErrConnectionNotFound when it does not exist.
	GetByID(ctx context.Context, id string) (*domain.IntegrationConnection, error)

	// GetByAccount retrieves a connection by tenant, provider and external
	// account, returning nil when none exists.
	GetByAccount(ctx context.Context, tenantID string, provider domain.Provider, externalAccountID string) (*domain.IntegrationConnection, error)

	// ListActive returns all connections eligible for scheduled syncs.
	ListActive(ctx context.Context) ([]*domain.IntegrationConnection, error)

	// Update persists connection state after a sync attempt or a settings
	// change. Each call is one atomic transition.
	Update(ctx context.Context, conn *domain.IntegrationConnection) error
}

// SyncLedger is the dedup and idempotency record mapping external orders to
// invoices, enforcing at most one invoice per (integration, external order).
type SyncLedger interface {
	// Has reports whether the order has already been processed for the
	// integration.
	Has(ctx context.Context, integrationID, externalOrderID string) (bool, error)

	// Get returns the ledger entry, or nil when none exists.
	Get(ctx context.Context, integrationID, externalOrderID string) (*domain.SyncLedgerEntry, error)

	// Record writes the ledger entry for a processed order. invoiceID is
	// empty for orders seen while invoice generation was disabled. Recording
	// an entry that already exists with a different non-empty invoice ID
	// fails with a conflict-kind error; recording the same invoice ID is a
	// no-op.
	Record(ctx context.Context, integrationID, externalOrderID, invoiceID string) error
}
