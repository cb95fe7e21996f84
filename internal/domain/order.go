package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the marketplace-neutral status of an external order.
// Gateways translate provider-specific status codes into this set.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOther      OrderStatus = "other"
)

// Actionable returns true for statuses that should produce an invoice.
func (s OrderStatus) Actionable() bool {
	return s == OrderStatusNew || s == OrderStatusProcessing
}

// Buyer holds the purchaser identity as the marketplace reports it.
type Buyer struct {
	FullName   string `json:"full_name"`
	Company    string `json:"company"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// DisplayName returns the buyer's full name, falling back to the company
// name and finally a placeholder when both are missing.
func (b Buyer) DisplayName() string {
	if name := strings.TrimSpace(b.FullName); name != "" {
		return name
	}
	if company := strings.TrimSpace(b.Company); company != "" {
		return company
	}
	return "Unknown Buyer"
}

// Address composes "street, postalCode city", omitting missing components
// without leaving stray separators behind.
func (b Buyer) Address() string {
	street := strings.TrimSpace(b.Street)
	locality := strings.TrimSpace(strings.TrimSpace(b.PostalCode) + " " + strings.TrimSpace(b.City))

	switch {
	case street != "" && locality != "":
		return street + ", " + locality
	case street != "":
		return street
	default:
		return locality
	}
}

// IdentityKey is the match key used to resolve a buyer against existing
// customer records: the lowercased email when present, otherwise the
// normalized name plus address.
func (b Buyer) IdentityKey() string {
	if email := strings.ToLower(strings.TrimSpace(b.Email)); email != "" {
		return email
	}
	return normalizeIdentity(b.DisplayName() + "|" + b.Address())
}

func normalizeIdentity(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// OrderLine is one line item of an external order. UnitGrossPrice is the
// gross (VAT-inclusive) unit price as all supported marketplaces report it.
type OrderLine struct {
	ProductRef     string           `json:"product_ref"`
	Name           string           `json:"name"`
	SKU            string           `json:"sku,omitempty"`
	Quantity       decimal.Decimal  `json:"quantity"`
	UnitGrossPrice decimal.Decimal  `json:"unit_gross_price"`
	VatRate        *decimal.Decimal `json:"vat_rate,omitempty"` // nil means "use the connection default"
}

// ExternalOrder is the transient, marketplace-neutral shape of a fetched
// order. It is never persisted as-is; the mapper turns it into a
// DraftInvoice and the ledger records only its ID.
type ExternalOrder struct {
	ExternalOrderID  string      `json:"external_order_id"`
	Status           OrderStatus `json:"status"`
	Buyer            Buyer       `json:"buyer"`
	Currency         string      `json:"currency"`
	Lines            []OrderLine `json:"lines"`
	PlacedAt         time.Time   `json:"placed_at"`
	PaymentConfirmed bool        `json:"payment_confirmed"`
}
