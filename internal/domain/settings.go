package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// IntegrationSettings is the fully resolved per-connection sync policy.
// After ResolveSettings no field is ever "unset": absent overrides have
// already been replaced by the system defaults.
type IntegrationSettings struct {
	AutoGenerateInvoices bool            `json:"auto_generate_invoices"`
	AutoCreateCustomer   bool            `json:"auto_create_customer"`
	AutoCreateProduct    bool            `json:"auto_create_product"`
	AutoMarkAsPaid       bool            `json:"auto_mark_as_paid"`
	DefaultVatRate       decimal.Decimal `json:"default_vat_rate"`
	SyncFrequencyMinutes int             `json:"sync_frequency_minutes"`
}

// SettingsPatch carries tenant overrides. Pointer fields keep "not provided"
// distinct from "explicitly false"/zero.
type SettingsPatch struct {
	AutoGenerateInvoices *bool            `json:"auto_generate_invoices,omitempty"`
	AutoCreateCustomer   *bool            `json:"auto_create_customer,omitempty"`
	AutoCreateProduct    *bool            `json:"auto_create_product,omitempty"`
	AutoMarkAsPaid       *bool            `json:"auto_mark_as_paid,omitempty"`
	DefaultVatRate       *decimal.Decimal `json:"default_vat_rate,omitempty"`
	SyncFrequencyMinutes *int             `json:"sync_frequency_minutes,omitempty"`
}

// DefaultSettings returns the system default sync policy.
func DefaultSettings() IntegrationSettings {
	return IntegrationSettings{
		AutoGenerateInvoices: true,
		AutoCreateCustomer:   true,
		AutoCreateProduct:    true,
		AutoMarkAsPaid:       false,
		DefaultVatRate:       decimal.NewFromInt(23),
		SyncFrequencyMinutes: 60,
	}
}

// ResolveSettings merges tenant overrides over the defaults. Out-of-range
// values are rejected, never clamped: the caller must supply corrected
// values.
func ResolveSettings(patch SettingsPatch) (IntegrationSettings, error) {
	resolved := DefaultSettings()

	if patch.AutoGenerateInvoices != nil {
		resolved.AutoGenerateInvoices = *patch.AutoGenerateInvoices
	}
	if patch.AutoCreateCustomer != nil {
		resolved.AutoCreateCustomer = *patch.AutoCreateCustomer
	}
	if patch.AutoCreateProduct != nil {
		resolved.AutoCreateProduct = *patch.AutoCreateProduct
	}
	if patch.AutoMarkAsPaid != nil {
		resolved.AutoMarkAsPaid = *patch.AutoMarkAsPaid
	}
	if patch.DefaultVatRate != nil {
		rate := *patch.DefaultVatRate
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return IntegrationSettings{}, fmt.Errorf("default vat rate must be within [0,100], got %s", rate)
		}
		resolved.DefaultVatRate = rate
	}
	if patch.SyncFrequencyMinutes != nil {
		if *patch.SyncFrequencyMinutes <= 0 {
			return IntegrationSettings{}, fmt.Errorf("sync frequency must be positive, got %d", *patch.SyncFrequencyMinutes)
		}
		resolved.SyncFrequencyMinutes = *patch.SyncFrequencyMinutes
	}

	return resolved, nil
}

// ApplyPatch resolves a patch over existing settings rather than the system
// defaults, used when a tenant updates an already-configured connection.
func (s IntegrationSettings) ApplyPatch(patch SettingsPatch) (IntegrationSettings, error) {
	resolved := s

	if patch.AutoGenerateInvoices != nil {
		resolved.AutoGenerateInvoices = *patch.AutoGenerateInvoices
	}
	if patch.AutoCreateCustomer != nil {
		resolved.AutoCreateCustomer = *patch.AutoCreateCustomer
	}
	if patch.AutoCreateProduct != nil {
		resolved.AutoCreateProduct = *patch.AutoCreateProduct
	}
	if patch.AutoMarkAsPaid != nil {
		resolved.AutoMarkAsPaid = *patch.AutoMarkAsPaid
	}
	if patch.DefaultVatRate != nil {
		rate := *patch.DefaultVatRate
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return IntegrationSettings{}, fmt.Errorf("default vat rate must be within [0,100], got %s", rate)
		}
		resolved.DefaultVatRate = rate
	}
	if patch.SyncFrequencyMinutes != nil {
		if *patch.SyncFrequencyMinutes <= 0 {
			return IntegrationSettings{}, fmt.Errorf("sync frequency must be positive, got %d", *patch.SyncFrequencyMinutes)
		}
		resolved.SyncFrequencyMinutes = *patch.SyncFrequencyMinutes
	}

	return resolved, nil
}
