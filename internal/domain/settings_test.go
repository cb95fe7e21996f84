package domain_test

import (
	"testing"

	"invoicehub-sync/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool                       { return &b }
func intPtr(i int) *int                          { return &i }
func decPtr(d decimal.Decimal) *decimal.Decimal  { return &d }

func TestDefaultSettings(t *testing.T) {
	defaults := domain.DefaultSettings()

	assert.True(t, defaults.AutoGenerateInvoices)
	assert.True(t, defaults.AutoCreateCustomer)
	assert.True(t, defaults.AutoCreateProduct)
	assert.False(t, defaults.AutoMarkAsPaid)
	assert.True(t, defaults.DefaultVatRate.Equal(decimal.NewFromInt(23)))
	assert.Equal(t, 60, defaults.SyncFrequencyMinutes)
}

func TestResolveSettings(t *testing.T) {
	t.Run("empty patch keeps defaults", func(t *testing.T) {
		resolved, err := domain.ResolveSettings(domain.SettingsPatch{})
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSettings(), resolved)
	})

	t.Run("explicit false overrides default true", func(t *testing.T) {
		resolved, err := domain.ResolveSettings(domain.SettingsPatch{
			AutoGenerateInvoices: boolPtr(false),
			AutoCreateCustomer:   boolPtr(false),
		})
		require.NoError(t, err)
		assert.False(t, resolved.AutoGenerateInvoices)
		assert.False(t, resolved.AutoCreateCustomer)
		assert.True(t, resolved.AutoCreateProduct)
	})

	t.Run("partial patch merges over defaults", func(t *testing.T) {
		resolved, err := domain.ResolveSettings(domain.SettingsPatch{
			DefaultVatRate:       decPtr(decimal.NewFromInt(8)),
			SyncFrequencyMinutes: intPtr(15),
		})
		require.NoError(t, err)
		assert.True(t, resolved.DefaultVatRate.Equal(decimal.NewFromInt(8)))
		assert.Equal(t, 15, resolved.SyncFrequencyMinutes)
		assert.True(t, resolved.AutoGenerateInvoices)
		assert.False(t, resolved.AutoMarkAsPaid)
	})

	t.Run("vat rate above 100 rejected", func(t *testing.T) {
		_, err := domain.ResolveSettings(domain.SettingsPatch{
			DefaultVatRate: decPtr(decimal.NewFromInt(101)),
		})
		assert.Error(t, err)
	})

	t.Run("negative vat rate rejected", func(t *testing.T) {
		_, err := domain.ResolveSettings(domain.SettingsPatch{
			DefaultVatRate: decPtr(decimal.NewFromInt(-1)),
		})
		assert.Error(t, err)
	})

	t.Run("zero sync frequency rejected", func(t *testing.T) {
		_, err := domain.ResolveSettings(domain.SettingsPatch{
			SyncFrequencyMinutes: intPtr(0),
		})
		assert.Error(t, err)
	})

	t.Run("boundary vat rates accepted", func(t *testing.T) {
		resolved, err := domain.ResolveSettings(domain.SettingsPatch{
			DefaultVatRate: decPtr(decimal.Zero),
		})
		require.NoError(t, err)
		assert.True(t, resolved.DefaultVatRate.IsZero())

		resolved, err = domain.ResolveSettings(domain.SettingsPatch{
			DefaultVatRate: decPtr(decimal.NewFromInt(100)),
		})
		require.NoError(t, err)
		assert.True(t, resolved.DefaultVatRate.Equal(decimal.NewFromInt(100)))
	})
}

func TestApplyPatch(t *testing.T) {
	existing := domain.DefaultSettings()
	existing.AutoMarkAsPaid = true
	existing.SyncFrequencyMinutes = 30

	t.Run("merges over existing settings not defaults", func(t *testing.T) {
		updated, err := existing.ApplyPatch(domain.SettingsPatch{
			DefaultVatRate: decPtr(decimal.NewFromInt(5)),
		})
		require.NoError(t, err)
		assert.True(t, updated.AutoMarkAsPaid)
		assert.Equal(t, 30, updated.SyncFrequencyMinutes)
		assert.True(t, updated.DefaultVatRate.Equal(decimal.NewFromInt(5)))
	})

	t.Run("invalid patch leaves nothing applied", func(t *testing.T) {
		_, err := existing.ApplyPatch(domain.SettingsPatch{
			AutoMarkAsPaid:       boolPtr(false),
			SyncFrequencyMinutes: intPtr(-5),
		})
		assert.Error(t, err)
	})
}

func TestConnectionFailureBreaker(t *testing.T) {
	conn := &domain.IntegrationConnection{IsActive: true}

	for i := 1; i < domain.FailureThreshold; i++ {
		tripped := conn.RecordFailure("boom")
		assert.False(t, tripped, "failure %d must not trip the breaker", i)
		assert.True(t, conn.IsActive)
	}

	tripped := conn.RecordFailure("boom")
	assert.True(t, tripped)
	assert.False(t, conn.IsActive)
	assert.Equal(t, domain.FailureThreshold, conn.ConsecutiveFailureCount)

	conn.Reactivate()
	assert.True(t, conn.IsActive)
	assert.Zero(t, conn.ConsecutiveFailureCount)
	assert.Empty(t, conn.LastSyncError)
}
