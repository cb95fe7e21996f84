package domain

import "time"

// DefaultLookback bounds how far back a sync run asks the marketplace for
// candidate orders.
const DefaultLookback = 30 * 24 * time.Hour

// GatewayTimeout caps a single order-batch fetch; a fetch exceeding it is
// treated as a transient gateway failure.
const GatewayTimeout = 30 * time.Second

// OrderFilter narrows which external orders a sync run fetches.
type OrderFilter struct {
	Since              time.Time
	Statuses           []OrderStatus
	IncludeUnconfirmed bool
}

// DefaultOrderFilter returns the filter used by automatic sync runs: a fixed
// lookback window and the actionable status set.
func DefaultOrderFilter(now time.Time) OrderFilter {
	return OrderFilter{
		Since:    now.Add(-DefaultLookback),
		Statuses: []OrderStatus{OrderStatusNew, OrderStatusProcessing},
	}
}

// SyncLedgerEntry records that an external order has been processed for an
// integration. InvoiceID is empty when the order was mapped but invoice
// generation was disabled at the time ("seen" entries). Entries are never
// mutated or deleted.
type SyncLedgerEntry struct {
	IntegrationID   string    `json:"integration_id"`
	ExternalOrderID string    `json:"external_order_id"`
	InvoiceID       string    `json:"invoice_id,omitempty"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// SyncResult summarizes one sync run. Success is false only for run-level
// failures (could not authenticate, could not fetch the order list); a run
// with per-order errors still reports Success true with the errors listed.
type SyncResult struct {
	Success         bool     `json:"success"`
	OrdersProcessed int      `json:"orders_processed"`
	InvoicesCreated int      `json:"invoices_created"`
	Errors          []string `json:"errors,omitempty"`
}
