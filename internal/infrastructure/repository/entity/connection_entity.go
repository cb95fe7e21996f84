package entity

import (
	"time"

	"invoicehub-sync/internal/domain"

	"github.com/shopspring/decimal"
)

// MongoConnectionDoc represents an integration connection in MongoDB. The
// connection ID is a UUID generated by the application, stored as _id.
type MongoConnectionDoc struct {
	ID                      string           `bson:"_id"`
	TenantID                string           `bson:"tenantId"`
	CompanyID               string           `bson:"companyId"`
	Provider                string           `bson:"provider"`
	ExternalAccountID       string           `bson:"externalAccountId"`
	CredentialRef           string           `bson:"credentialRef"`
	IsActive                bool             `bson:"isActive"`
	ConsecutiveFailureCount int              `bson:"consecutiveFailureCount"`
	LastSyncAt              *time.Time       `bson:"lastSyncAt,omitempty"`
	LastSyncError           string           `bson:"lastSyncError,omitempty"`
	Settings                MongoSettingsDoc `bson:"settings"`
	CreatedAt               time.Time        `bson:"createdAt"`
	UpdatedAt               time.Time        `bson:"updatedAt"`
}

// MongoSettingsDoc holds the resolved sync policy. The VAT rate is stored as
// a string to keep decimal precision exact.
type MongoSettingsDoc struct {
	AutoGenerateInvoices bool   `bson:"autoGenerateInvoices"`
	AutoCreateCustomer   bool   `bson:"autoCreateCustomer"`
	AutoCreateProduct    bool   `bson:"autoCreateProduct"`
	AutoMarkAsPaid       bool   `bson:"autoMarkAsPaid"`
	DefaultVatRate       string `bson:"defaultVatRate"`
	SyncFrequencyMinutes int    `bson:"syncFrequencyMinutes"`
}

// ToDomain converts the MongoDB document to a domain entity.
func (d *MongoConnectionDoc) ToDomain() *domain.IntegrationConnection {
	vatRate, err := decimal.NewFromString(d.Settings.DefaultVatRate)
	if err != nil {
		vatRate = domain.DefaultSettings().DefaultVatRate
	}

	return &domain.IntegrationConnection{
		ID:                      d.ID,
		TenantID:                d.TenantID,
		CompanyID:               d.CompanyID,
		Provider:                domain.Provider(d.Provider),
		ExternalAccountID:       d.ExternalAccountID,
		CredentialRef:           d.CredentialRef,
		IsActive:                d.IsActive,
		ConsecutiveFailureCount: d.ConsecutiveFailureCount,
		LastSyncAt:              d.LastSyncAt,
		LastSyncError:           d.LastSyncError,
		Settings: domain.IntegrationSettings{
			AutoGenerateInvoices: d.Settings.AutoGenerateInvoices,
			AutoCreateCustomer:   d.Settings.AutoCreateCustomer,
			AutoCreateProduct:    d.Settings.AutoCreateProduct,
			AutoMarkAsPaid:       d.Settings.AutoMarkAsPaid,
			DefaultVatRate:       vatRate,
			SyncFrequencyMinutes: d.Settings.SyncFrequencyMinutes,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoConnectionDocFromDomain converts a domain entity to a MongoDB document.
func MongoConnectionDocFromDomain(conn *domain.IntegrationConnection) *MongoConnectionDoc {
	return &MongoConnectionDoc{
		ID:                      conn.ID,
		TenantID:                conn.TenantID,
		CompanyID:               conn.CompanyID,
		Provider:                conn.Provider.String(),
		ExternalAccountID:       conn.ExternalAccountID,
		CredentialRef:           conn.CredentialRef,
		IsActive:                conn.IsActive,
		ConsecutiveFailureCount: conn.ConsecutiveFailureCount,
		LastSyncAt:              conn.LastSyncAt,
		LastSyncError:           conn.LastSyncError,
		Settings: MongoSettingsDoc{
			AutoGenerateInvoices: conn.Settings.AutoGenerateInvoices,
			AutoCreateCustomer:   conn.Settings.AutoCreateCustomer,
			AutoCreateProduct:    conn.Settings.AutoCreateProduct,
			AutoMarkAsPaid:       conn.Settings.AutoMarkAsPaid,
			DefaultVatRate:       conn.Settings.DefaultVatRate.String(),
			SyncFrequencyMinutes: conn.Settings.SyncFrequencyMinutes,
		},
		CreatedAt: conn.CreatedAt,
		UpdatedAt: conn.UpdatedAt,
	}
}

// MongoLedgerDoc represents a sync ledger entry in MongoDB. A unique index
// on (integrationId, externalOrderId) enforces at most one entry per order.
type MongoLedgerDoc struct {
	IntegrationID   string    `bson:"integrationId"`
	ExternalOrderID string    `bson:"externalOrderId"`
	InvoiceID       string    `bson:"invoiceId,omitempty"`
	ProcessedAt     time.Time `bson:"processedAt"`
}

// ToDomain converts the MongoDB document to a domain entity.
func (d *MongoLedgerDoc) ToDomain() *domain.SyncLedgerEntry {
	return &domain.SyncLedgerEntry{
		IntegrationID:   d.IntegrationID,
		ExternalOrderID: d.ExternalOrderID,
		InvoiceID:       d.InvoiceID,
		ProcessedAt:     d.ProcessedAt,
	}
}

// MongoCredentialDoc holds encrypted credential material. Token and account
// ID are stored only after encryption; plaintext never reaches the database.
type MongoCredentialDoc struct {
	Ref              string    `bson:"_id"`
	TenantID         string    `bson:"tenantId"`
	EncryptedToken   string    `bson:"encryptedToken"`
	EncryptedAccount string    `bson:"encryptedAccount,omitempty"`
	CreatedAt        time.Time `bson:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt"`
}
