package domain

import "github.com/shopspring/decimal"

// CustomerDraft is the payload used to create a customer record when
// auto-create is enabled and no existing customer matches the buyer.
type CustomerDraft struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// ProductDraft is the payload used to create a product record for an
// unrecognized line item.
type ProductDraft struct {
	Name        string          `json:"name"`
	SKU         string          `json:"sku,omitempty"`
	ExternalRef string          `json:"external_ref,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VatRate     decimal.Decimal `json:"vat_rate"`
}

// DraftItem is one line of a draft invoice. UnitPrice is gross; net and tax
// are derived at totals time to avoid per-line rounding drift.
type DraftItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VatRate     decimal.Decimal `json:"vat_rate"`
	ProductRef  string          `json:"product_ref,omitempty"`
}

// DraftInvoice is the mapped, not-yet-persisted representation of an
// external order, ready for the invoice collaborator.
type DraftInvoice struct {
	CompanyID       string         `json:"company_id"`
	CustomerID      string         `json:"customer_id,omitempty"` // set once the buyer is resolved
	CustomerDraft   *CustomerDraft `json:"customer_draft,omitempty"`
	CustomerKey     string         `json:"customer_key"` // buyer identity match key
	Items           []DraftItem    `json:"items"`
	Currency        string         `json:"currency"`
	ExternalOrderID string         `json:"external_order_id"`
	MarkPaid        bool           `json:"mark_paid"`
}

// InvoiceTotals is the rounded presentation-level summary of a draft.
type InvoiceTotals struct {
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
	Gross decimal.Decimal `json:"gross"`
}
