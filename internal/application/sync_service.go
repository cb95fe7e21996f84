package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/metrics"
	"invoicehub-sync/internal/ports"

	"github.com/rs/zerolog"
)

// runLockTTL bounds how long a crashed run can keep its integration locked.
const runLockTTL = 2 * time.Minute

// SyncService orchestrates one sync run end to end: fetch orders from the
// marketplace, skip already-processed ones via the ledger, map the rest into
// draft invoices, resolve customers and products, issue invoices and record
// the outcome on the connection.
type SyncService struct {
	connections ports.ConnectionRepository
	ledger      ports.SyncLedger
	gateways    ports.GatewayResolver
	credentials ports.CredentialStore
	customers   ports.CustomerDirectory
	products    ports.ProductCatalog
	invoices    ports.InvoiceIssuer
	locker      ports.RunLocker
	logger      zerolog.Logger

	includeUnconfirmed bool
	now                func() time.Time
}

// SyncOption customizes a SyncService.
type SyncOption func(*SyncService)

// WithIncludeUnconfirmed makes sync runs ask gateways for unconfirmed orders
// as well. Off by default.
func WithIncludeUnconfirmed(include bool) SyncOption {
	return func(s *SyncService) {
		s.includeUnconfirmed = include
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) SyncOption {
	return func(s *SyncService) {
		s.now = now
	}
}

// NewSyncService creates a new sync orchestrator.
func NewSyncService(
	connections ports.ConnectionRepository,
	ledger ports.SyncLedger,
	gateways ports.GatewayResolver,
	credentials ports.CredentialStore,
	customers ports.CustomerDirectory,
	products ports.ProductCatalog,
	invoices ports.InvoiceIssuer,
	locker ports.RunLocker,
	logger zerolog.Logger,
	opts ...SyncOption,
) *SyncService {
	s := &SyncService{
		connections: connections,
		ledger:      ledger,
		gateways:    gateways,
		credentials: credentials,
		customers:   customers,
		products:    products,
		invoices:    invoices,
		locker:      locker,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunSync executes one sync run for an integration. Per-order failures are
// isolated and reported inside the result; Success is false only when the
// run itself could not proceed (disabled connection, concurrent run,
// credential or fetch failure).
func (s *SyncService) RunSync(ctx context.Context, integrationID string) (domain.SyncResult, error) {
	started := s.now()

	conn, err := s.connections.GetByID(ctx, integrationID)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("failed to load connection: %w", err)
	}
	if tenantID := domain.TenantIDFromContext(ctx); tenantID != "" && tenantID != conn.TenantID {
		return domain.SyncResult{}, domain.ErrConnectionNotFound
	}

	provider := conn.Provider.String()
	log := s.logger.With().
		Str("integrationID", conn.ID).
		Str("provider", provider).
		Logger()

	lock, err := s.locker.Acquire(ctx, conn.ID, runLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			log.Info().Msg("Sync run already in progress, skipping")
			metrics.SyncRuns.WithLabelValues(provider, "skipped").Inc()
			return domain.SyncResult{Success: false, Errors: []string{"sync already running"}}, nil
		}
		return domain.SyncResult{}, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("Failed to release run lock")
		}
	}()

	if !conn.IsActive {
		log.Info().Msg("Connection is disabled, skipping sync")
		metrics.SyncRuns.WithLabelValues(provider, "disabled").Inc()
		return domain.SyncResult{Success: false, Errors: []string{"integration is disabled"}}, nil
	}

	settings := conn.Settings

	cred, err := s.credentials.Get(ctx, conn.CredentialRef)
	if err != nil {
		return s.finishFailedRun(ctx, log, conn,
			domain.TransientError("credential_unavailable", "failed to load credentials", err))
	}

	gateway, err := s.gateways.Gateway(conn.Provider)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("failed to resolve gateway: %w", err)
	}

	filter := domain.DefaultOrderFilter(started)
	filter.IncludeUnconfirmed = s.includeUnconfirmed

	fetchCtx, cancel := context.WithTimeout(ctx, domain.GatewayTimeout)
	orders, err := gateway.FetchOrders(fetchCtx, cred, filter)
	cancel()
	if err != nil {
		return s.finishFailedRun(ctx, log, conn, err)
	}

	result := domain.SyncResult{Success: true}
	for _, order := range orders {
		seen, err := s.ledger.Has(ctx, conn.ID, order.ExternalOrderID)
		if err != nil {
			result.Errors = append(result.Errors, orderError(order.ExternalOrderID, err))
			continue
		}
		if seen {
			continue
		}

		created, err := s.processOrder(ctx, conn, settings, order)
		result.OrdersProcessed++
		if created {
			result.InvoicesCreated++
			metrics.InvoicesCreated.WithLabelValues(provider).Inc()
		}
		if err != nil {
			log.Warn().Err(err).
				Str("externalOrderID", order.ExternalOrderID).
				Msg("Failed to process order")
			metrics.OrderErrors.WithLabelValues(provider, errorCode(err)).Inc()
			result.Errors = append(result.Errors, orderError(order.ExternalOrderID, err))
		}
		metrics.OrdersProcessed.WithLabelValues(provider).Inc()
	}

	conn.RecordSuccess(s.now())
	conn.UpdatedAt = s.now()
	if err := s.connections.Update(ctx, conn); err != nil {
		return domain.SyncResult{}, fmt.Errorf("failed to update connection after sync: %w", err)
	}

	log.Info().
		Int("ordersProcessed", result.OrdersProcessed).
		Int("invoicesCreated", result.InvoicesCreated).
		Int("orderErrors", len(result.Errors)).
		Dur("duration", s.now().Sub(started)).
		Msg("Sync run completed")
	metrics.SyncRuns.WithLabelValues(provider, "success").Inc()
	metrics.RunDuration.WithLabelValues(provider).Observe(s.now().Sub(started).Seconds())

	return result, nil
}

// processOrder handles one not-yet-seen order: map it, resolve the customer
// and products according to the auto-create policy, issue the invoice when
// generation is enabled, and record the ledger entry. A ledger conflict from
// a racing run is treated as already processed, not as a failure.
func (s *SyncService) processOrder(ctx context.Context, conn *domain.IntegrationConnection, settings domain.IntegrationSettings, order domain.ExternalOrder) (created bool, err error) {
	draft, err := MapOrder(order, settings)
	if err != nil {
		return false, err
	}
	draft.CompanyID = conn.CompanyID

	if !settings.AutoGenerateInvoices {
		if err := s.ledger.Record(ctx, conn.ID, order.ExternalOrderID, ""); err != nil {
			if domain.IsConflict(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to record ledger entry: %w", err)
		}
		return false, nil
	}

	customerID, err := s.resolveCustomer(ctx, conn.TenantID, settings, draft)
	if err != nil {
		return false, err
	}
	draft.CustomerID = customerID
	draft.CustomerDraft = nil

	for i := range draft.Items {
		productID, err := s.resolveProduct(ctx, conn.TenantID, settings, order.Lines[i], draft.Items[i])
		if err != nil {
			return false, err
		}
		draft.Items[i].ProductRef = productID
	}

	invoiceID, err := s.invoices.Create(ctx, conn.CompanyID, draft)
	if err != nil {
		return false, err
	}

	if err := s.ledger.Record(ctx, conn.ID, order.ExternalOrderID, invoiceID); err != nil {
		if domain.IsConflict(err) {
			s.logger.Warn().
				Str("integrationID", conn.ID).
				Str("externalOrderID", order.ExternalOrderID).
				Str("invoiceID", invoiceID).
				Msg("Ledger conflict after invoice creation, order was processed concurrently")
			return true, nil
		}
		return true, fmt.Errorf("failed to record ledger entry: %w", err)
	}

	return true, nil
}

// resolveCustomer finds the customer matching the buyer identity key,
// creating one when allowed by the policy.
func (s *SyncService) resolveCustomer(ctx context.Context, tenantID string, settings domain.IntegrationSettings, draft domain.DraftInvoice) (string, error) {
	customerID, err := s.customers.FindByIdentity(ctx, tenantID, draft.CustomerKey)
	if err != nil {
		return "", fmt.Errorf("failed to look up customer: %w", err)
	}
	if customerID != "" {
		return customerID, nil
	}

	if !settings.AutoCreateCustomer {
		return "", domain.OrderError("customer_not_found",
			"no matching customer and auto-create is disabled", nil)
	}

	customerID, err = s.customers.Create(ctx, tenantID, *draft.CustomerDraft)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return customerID, nil
}

// resolveProduct finds the product for one line item, matching by SKU when
// present and by the marketplace product reference otherwise.
func (s *SyncService) resolveProduct(ctx context.Context, tenantID string, settings domain.IntegrationSettings, line domain.OrderLine, item domain.DraftItem) (string, error) {
	var (
		productID string
		err       error
	)
	if line.SKU != "" {
		productID, err = s.products.FindBySKU(ctx, tenantID, line.SKU)
	} else {
		productID, err = s.products.FindByExternalRef(ctx, tenantID, line.ProductRef)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up product: %w", err)
	}
	if productID != "" {
		return productID, nil
	}

	if !settings.AutoCreateProduct {
		return "", domain.OrderError("product_not_found",
			fmt.Sprintf("no matching product for %q and auto-create is disabled", item.Description), nil)
	}

	productID, err = s.products.Create(ctx, tenantID, domain.ProductDraft{
		Name:        item.Description,
		SKU:         line.SKU,
		ExternalRef: line.ProductRef,
		UnitPrice:   item.UnitPrice,
		VatRate:     item.VatRate,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}
	return productID, nil
}

// finishFailedRun records a connection-level failure, persisting the updated
// failure counter and deactivating the connection once the threshold is
// reached. Auth failures deactivate immediately: retrying a revoked
// credential cannot succeed.
func (s *SyncService) finishFailedRun(ctx context.Context, log zerolog.Logger, conn *domain.IntegrationConnection, runErr error) (domain.SyncResult, error) {
	message := errorMessage(runErr)

	if domain.IsAuth(runErr) {
		conn.IsActive = false
		conn.LastSyncError = message
		log.Error().Err(runErr).Msg("Authentication failed, connection deactivated")
		metrics.SyncRuns.WithLabelValues(conn.Provider.String(), "auth_failure").Inc()
	} else {
		tripped := conn.RecordFailure(message)
		if tripped {
			log.Error().
				Int("consecutiveFailures", conn.ConsecutiveFailureCount).
				Msg("Failure threshold reached, connection deactivated")
		} else {
			log.Warn().Err(runErr).
				Int("consecutiveFailures", conn.ConsecutiveFailureCount).
				Msg("Sync run failed")
		}
		metrics.SyncRuns.WithLabelValues(conn.Provider.String(), "failure").Inc()
	}

	conn.UpdatedAt = s.now()
	if err := s.connections.Update(ctx, conn); err != nil {
		return domain.SyncResult{}, fmt.Errorf("failed to update connection after failed sync: %w", err)
	}

	return domain.SyncResult{Success: false, Errors: []string{message}}, nil
}

func orderError(externalOrderID string, err error) string {
	return fmt.Sprintf("order %s: %s", externalOrderID, errorMessage(err))
}

// errorMessage prefers the sync error's own message over the full wrap
// chain, keeping transport details out of tenant-visible results.
func errorMessage(err error) string {
	var syncErr *domain.SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Message
	}
	return err.Error()
}

func errorCode(err error) string {
	var syncErr *domain.SyncError
	if errors.As(err, &syncErr) && syncErr.Code != "" {
		return syncErr.Code
	}
	return "unknown"
}
