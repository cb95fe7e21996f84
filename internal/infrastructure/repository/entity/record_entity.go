package entity

import "time"

// MongoCustomerDoc represents a customer record. IdentityKey is the buyer
// match key (lowercased email or normalized name+address) used by the sync
// pipeline to resolve marketplace buyers.
type MongoCustomerDoc struct {
	ID          string    `bson:"_id"`
	TenantID    string    `bson:"tenantId"`
	IdentityKey string    `bson:"identityKey"`
	Name        string    `bson:"name"`
	Email       string    `bson:"email,omitempty"`
	Phone       string    `bson:"phone,omitempty"`
	Address     string    `bson:"address,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
}

// MongoProductDoc represents a product record. SKU and ExternalRef are the
// two lookup keys for marketplace line items.
type MongoProductDoc struct {
	ID          string    `bson:"_id"`
	TenantID    string    `bson:"tenantId"`
	Name        string    `bson:"name"`
	SKU         string    `bson:"sku,omitempty"`
	ExternalRef string    `bson:"externalRef,omitempty"`
	UnitPrice   string    `bson:"unitPrice"`
	VatRate     string    `bson:"vatRate"`
	CreatedAt   time.Time `bson:"createdAt"`
}

// MongoInvoiceDoc represents an issued invoice. Money fields are stored as
// strings to keep decimal precision exact.
type MongoInvoiceDoc struct {
	ID              string                 `bson:"_id"`
	CompanyID       string                 `bson:"companyId"`
	CustomerID      string                 `bson:"customerId"`
	ExternalOrderID string                 `bson:"externalOrderId,omitempty"`
	Currency        string                 `bson:"currency"`
	Items           []MongoInvoiceItemDoc  `bson:"items"`
	TotalNet        string                 `bson:"totalNet"`
	TotalTax        string                 `bson:"totalTax"`
	TotalGross      string                 `bson:"totalGross"`
	Status          string                 `bson:"status"`
	IssuedAt        time.Time              `bson:"issuedAt"`
}

// MongoInvoiceItemDoc is one invoice line.
type MongoInvoiceItemDoc struct {
	Description string `bson:"description"`
	ProductRef  string `bson:"productRef,omitempty"`
	Quantity    string `bson:"quantity"`
	UnitPrice   string `bson:"unitPrice"`
	VatRate     string `bson:"vatRate"`
}
