package application_test

import (
	"context"
	"testing"

	"invoicehub-sync/internal/application"
	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/infrastructure/gateway"
	"invoicehub-sync/internal/infrastructure/repository"
	"invoicehub-sync/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifyGateway struct {
	fakeGateway
	verifyErr error
	lastCred  ports.Credential
}

func (g *verifyGateway) VerifyCredential(_ context.Context, cred ports.Credential) (string, error) {
	g.lastCred = cred
	if g.verifyErr != nil {
		return "", g.verifyErr
	}
	return "acct-1", nil
}

func newConnectionService(gw *verifyGateway) (*application.ConnectionService, *repository.MemoryConnectionRepository, *repository.MemoryCredentialStore) {
	repo := repository.NewMemoryConnectionRepository()
	creds := repository.NewMemoryCredentialStore()
	svc := application.NewConnectionService(repo, gateway.NewResolver(gw), creds, zerolog.Nop())
	return svc, repo, creds
}

func TestConnect(t *testing.T) {
	t.Run("verifies credential and creates connection", func(t *testing.T) {
		gw := &verifyGateway{fakeGateway: fakeGateway{provider: domain.ProviderBaseLinker}}
		svc, _, creds := newConnectionService(gw)

		vat := decimal.NewFromInt(8)
		conn, err := svc.Connect(context.Background(), application.ConnectInput{
			TenantID:  "tenant-1",
			CompanyID: "co-1",
			Provider:  domain.ProviderBaseLinker,
			Token:     "secret-token",
			Settings:  domain.SettingsPatch{DefaultVatRate: &vat},
		})
		require.NoError(t, err)

		assert.NotEmpty(t, conn.ID)
		assert.Equal(t, "acct-1", conn.ExternalAccountID)
		assert.True(t, conn.IsActive)
		assert.True(t, conn.Settings.DefaultVatRate.Equal(vat))
		assert.True(t, conn.Settings.AutoGenerateInvoices)

		// The raw token lives only in the credential store.
		require.NotEmpty(t, conn.CredentialRef)
		stored, err := creds.Get(context.Background(), conn.CredentialRef)
		require.NoError(t, err)
		assert.Equal(t, "secret-token", stored.Token)
	})

	t.Run("reconnecting the same account returns the existing connection", func(t *testing.T) {
		gw := &verifyGateway{fakeGateway: fakeGateway{provider: domain.ProviderBaseLinker}}
		svc, _, _ := newConnectionService(gw)

		input := application.ConnectInput{
			TenantID: "tenant-1", CompanyID: "co-1",
			Provider: domain.ProviderBaseLinker, Token: "secret-token",
		}
		first, err := svc.Connect(context.Background(), input)
		require.NoError(t, err)

		second, err := svc.Connect(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("rejected credential fails the connect", func(t *testing.T) {
		gw := &verifyGateway{
			fakeGateway: fakeGateway{provider: domain.ProviderBaseLinker},
			verifyErr:   domain.AuthError("bad_token", "token rejected", nil),
		}
		svc, _, _ := newConnectionService(gw)

		_, err := svc.Connect(context.Background(), application.ConnectInput{
			TenantID: "tenant-1", Provider: domain.ProviderBaseLinker, Token: "bad",
		})
		require.Error(t, err)
		assert.True(t, domain.IsAuth(err))
	})

	t.Run("invalid settings rejected before storing anything", func(t *testing.T) {
		gw := &verifyGateway{fakeGateway: fakeGateway{provider: domain.ProviderBaseLinker}}
		svc, repo, _ := newConnectionService(gw)

		vat := decimal.NewFromInt(150)
		_, err := svc.Connect(context.Background(), application.ConnectInput{
			TenantID: "tenant-1", Provider: domain.ProviderBaseLinker, Token: "tok",
			Settings: domain.SettingsPatch{DefaultVatRate: &vat},
		})
		require.ErrorIs(t, err, domain.ErrInvalidSettings)

		existing, err := repo.GetByAccount(context.Background(), "tenant-1", domain.ProviderBaseLinker, "acct-1")
		require.NoError(t, err)
		assert.Nil(t, existing)
	})
}

func TestDeactivateReactivate(t *testing.T) {
	gw := &verifyGateway{fakeGateway: fakeGateway{provider: domain.ProviderBaseLinker}}
	svc, repo, _ := newConnectionService(gw)

	conn, err := svc.Connect(context.Background(), application.ConnectInput{
		TenantID: "tenant-1", Provider: domain.ProviderBaseLinker, Token: "tok",
	})
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	// Simulate breaker state before reactivation.
	deactivated.ConsecutiveFailureCount = 5
	deactivated.LastSyncError = "gateway timed out"
	require.NoError(t, repo.Update(context.Background(), deactivated))

	reactivated, err := svc.Reactivate(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive)
	assert.Zero(t, reactivated.ConsecutiveFailureCount)
	assert.Empty(t, reactivated.LastSyncError)
}

func TestConnectionTenantScoping(t *testing.T) {
	gw := &verifyGateway{fakeGateway: fakeGateway{provider: domain.ProviderBaseLinker}}
	svc, _, _ := newConnectionService(gw)

	conn, err := svc.Connect(context.Background(), application.ConnectInput{
		TenantID: "tenant-1", Provider: domain.ProviderBaseLinker, Token: "tok",
	})
	require.NoError(t, err)

	ctx := domain.WithTenantID(context.Background(), "tenant-2")
	_, err = svc.GetConnection(ctx, conn.ID)
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)

	ctx = domain.WithTenantID(context.Background(), "tenant-1")
	got, err := svc.GetConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, got.ID)
}

func TestDisconnectInvalidatesCredential(t *testing.T) {
	gw := &verifyGateway{fakeGateway: fakeGateway{provider: domain.ProviderBaseLinker}}
	svc, repo, creds := newConnectionService(gw)

	conn, err := svc.Connect(context.Background(), application.ConnectInput{
		TenantID: "tenant-1", Provider: domain.ProviderBaseLinker, Token: "tok",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Disconnect(context.Background(), conn.ID))

	_, err = creds.Get(context.Background(), conn.CredentialRef)
	assert.Error(t, err)

	stored, err := repo.GetByID(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Empty(t, stored.CredentialRef)
}

func TestUpdateSettings(t *testing.T) {
	gw := &verifyGateway{fakeGateway: fakeGateway{provider: domain.ProviderBaseLinker}}
	svc, repo, _ := newConnectionService(gw)
	settingsSvc := application.NewSettingsService(repo, zerolog.Nop())

	conn, err := svc.Connect(context.Background(), application.ConnectInput{
		TenantID: "tenant-1", Provider: domain.ProviderBaseLinker, Token: "tok",
	})
	require.NoError(t, err)

	t.Run("patch merges over current settings", func(t *testing.T) {
		autoMark := true
		updated, err := settingsSvc.UpdateSettings(context.Background(), conn.ID, domain.SettingsPatch{
			AutoMarkAsPaid: &autoMark,
		})
		require.NoError(t, err)
		assert.True(t, updated.AutoMarkAsPaid)
		assert.True(t, updated.AutoGenerateInvoices)

		got, err := settingsSvc.GetSettings(context.Background(), conn.ID)
		require.NoError(t, err)
		assert.True(t, got.AutoMarkAsPaid)
	})

	t.Run("out of range patch rejected whole", func(t *testing.T) {
		freq := -1
		autoMark := false
		_, err := settingsSvc.UpdateSettings(context.Background(), conn.ID, domain.SettingsPatch{
			AutoMarkAsPaid:       &autoMark,
			SyncFrequencyMinutes: &freq,
		})
		require.ErrorIs(t, err, domain.ErrInvalidSettings)

		got, err := settingsSvc.GetSettings(context.Background(), conn.ID)
		require.NoError(t, err)
		assert.True(t, got.AutoMarkAsPaid, "rejected patch must not be partially applied")
	})
}
