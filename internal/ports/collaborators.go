package ports

import (
	"context"
	"time"

	"invoicehub-sync/internal/domain"
)

// CustomerDirectory is the external customer record service the orchestrator
// resolves buyers against.
type CustomerDirectory interface {
	// FindByIdentity looks up a customer by the buyer identity key (email
	// when present, normalized name+address otherwise). Returns "" when no
	// customer matches.
	FindByIdentity(ctx context.Context, tenantID, identityKey string) (customerID string, err error)

	// Create materializes a new customer record.
	Create(ctx context.Context, tenantID string, draft domain.CustomerDraft) (customerID string, err error)
}

// ProductCatalog is the external product record service line items are
// resolved against.
type ProductCatalog interface {
	// FindBySKU looks up a product by (tenant, SKU). Returns "" when no
	// product matches.
	FindBySKU(ctx context.Context, tenantID, sku string) (productID string, err error)

	// FindByExternalRef looks up a product by the marketplace product
	// identifier, used for items without a SKU.
	FindByExternalRef(ctx context.Context, tenantID, externalRef string) (productID string, err error)

	// Create materializes a new product record.
	Create(ctx context.Context, tenantID string, draft domain.ProductDraft) (productID string, err error)
}

// InvoiceIssuer is the external invoice service. Domain rejections (for
// example insufficient data) surface as order-kind errors.
type InvoiceIssuer interface {
	Create(ctx context.Context, companyID string, draft domain.DraftInvoice) (invoiceID string, err error)
}

// RunLock is a held per-integration mutual-exclusion token.
type RunLock interface {
	Release(ctx context.Context) error
}

// RunLocker serializes sync runs per integration: a manual trigger racing a
// scheduled trigger must not produce two concurrent runs.
type RunLocker interface {
	// Acquire obtains the lock for an integration, returning
	// domain.ErrRunInProgress when another run holds it.
	Acquire(ctx context.Context, integrationID string, ttl time.Duration) (RunLock, error)
}
