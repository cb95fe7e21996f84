package application

import (
	"context"
	"fmt"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ConnectionService manages the lifecycle of integration connections:
// connecting a marketplace account, reading its status, and deactivating or
// reactivating it.
type ConnectionService struct {
	connections ports.ConnectionRepository
	gateways    ports.GatewayResolver
	credentials ports.CredentialStore
	logger      zerolog.Logger
}

// NewConnectionService creates a new connection service.
func NewConnectionService(
	connections ports.ConnectionRepository,
	gateways ports.GatewayResolver,
	credentials ports.CredentialStore,
	logger zerolog.Logger,
) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		gateways:    gateways,
		credentials: credentials,
		logger:      logger,
	}
}

// ConnectInput represents input for connecting a marketplace account.
type ConnectInput struct {
	TenantID  string
	CompanyID string
	Provider  domain.Provider
	Token     string
	AccountID string
	Settings  domain.SettingsPatch
}

// Connect verifies the credential against the marketplace, stores it
// encrypted, and creates the connection with the resolved sync policy.
// Connecting an account that is already connected for the tenant returns the
// existing connection unchanged.
func (s *ConnectionService) Connect(ctx context.Context, input ConnectInput) (*domain.IntegrationConnection, error) {
	if !input.Provider.IsValid() {
		return nil, fmt.Errorf("unsupported provider %q", input.Provider)
	}

	gateway, err := s.gateways.Gateway(input.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gateway: %w", err)
	}

	cred := ports.Credential{Token: input.Token, AccountID: input.AccountID}
	externalAccountID, err := gateway.VerifyCredential(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	existing, err := s.connections.GetByAccount(ctx, input.TenantID, input.Provider, externalAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing connection: %w", err)
	}
	if existing != nil {
		s.logger.Info().
			Str("tenantID", input.TenantID).
			Str("provider", input.Provider.String()).
			Str("externalAccountID", externalAccountID).
			Str("integrationID", existing.ID).
			Msg("Account already connected, returning existing connection")
		return existing, nil
	}

	settings, err := domain.ResolveSettings(input.Settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSettings, err)
	}

	ref, err := s.credentials.Store(ctx, input.TenantID, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	now := time.Now()
	conn := &domain.IntegrationConnection{
		ID:                uuid.New().String(),
		TenantID:          input.TenantID,
		CompanyID:         input.CompanyID,
		Provider:          input.Provider,
		ExternalAccountID: externalAccountID,
		CredentialRef:     ref,
		IsActive:          true,
		Settings:          settings,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.connections.Create(ctx, conn); err != nil {
		if invErr := s.credentials.Invalidate(ctx, ref); invErr != nil {
			s.logger.Warn().Err(invErr).Str("tenantID", input.TenantID).
				Msg("Failed to invalidate orphaned credential")
		}
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	s.logger.Info().
		Str("integrationID", conn.ID).
		Str("tenantID", conn.TenantID).
		Str("provider", conn.Provider.String()).
		Str("externalAccountID", conn.ExternalAccountID).
		Msg("Marketplace account connected")

	return conn, nil
}

// GetConnection returns the connection, scoped to the tenant in the context.
func (s *ConnectionService) GetConnection(ctx context.Context, integrationID string) (*domain.IntegrationConnection, error) {
	return s.getOwned(ctx, integrationID)
}

// Deactivate disables a connection so scheduled and manual syncs no longer
// run, keeping its ledger and settings intact.
func (s *ConnectionService) Deactivate(ctx context.Context, integrationID string) (*domain.IntegrationConnection, error) {
	conn, err := s.getOwned(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	if !conn.IsActive {
		return conn, nil
	}

	conn.IsActive = false
	conn.UpdatedAt = time.Now()
	if err := s.connections.Update(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}

	s.logger.Info().Str("integrationID", conn.ID).Msg("Connection deactivated")
	return conn, nil
}

// Reactivate re-enables a connection that was deactivated manually or by the
// failure breaker, resetting its failure state so the next run starts clean.
func (s *ConnectionService) Reactivate(ctx context.Context, integrationID string) (*domain.IntegrationConnection, error) {
	conn, err := s.getOwned(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	conn.Reactivate()
	conn.UpdatedAt = time.Now()
	if err := s.connections.Update(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}

	s.logger.Info().Str("integrationID", conn.ID).Msg("Connection reactivated")
	return conn, nil
}

// Disconnect removes the stored credential and deactivates the connection.
// The connection record and its ledger entries are kept for audit.
func (s *ConnectionService) Disconnect(ctx context.Context, integrationID string) error {
	conn, err := s.getOwned(ctx, integrationID)
	if err != nil {
		return err
	}

	if conn.CredentialRef != "" {
		if err := s.credentials.Invalidate(ctx, conn.CredentialRef); err != nil {
			return fmt.Errorf("failed to invalidate credentials: %w", err)
		}
	}

	conn.IsActive = false
	conn.CredentialRef = ""
	conn.UpdatedAt = time.Now()
	if err := s.connections.Update(ctx, conn); err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}

	s.logger.Info().Str("integrationID", conn.ID).Msg("Connection disconnected")
	return nil
}

// RotateCredential replaces the secret behind an existing connection after
// verifying the new credential still belongs to the same marketplace
// account.
func (s *ConnectionService) RotateCredential(ctx context.Context, integrationID, token, accountID string) error {
	conn, err := s.getOwned(ctx, integrationID)
	if err != nil {
		return err
	}

	gateway, err := s.gateways.Gateway(conn.Provider)
	if err != nil {
		return fmt.Errorf("failed to resolve gateway: %w", err)
	}

	cred := ports.Credential{Token: token, AccountID: accountID}
	externalAccountID, err := gateway.VerifyCredential(ctx, cred)
	if err != nil {
		return fmt.Errorf("failed to verify credentials: %w", err)
	}
	if externalAccountID != conn.ExternalAccountID {
		return fmt.Errorf("credential belongs to account %q, connection is for %q", externalAccountID, conn.ExternalAccountID)
	}

	if err := s.credentials.Rotate(ctx, conn.CredentialRef, cred); err != nil {
		return fmt.Errorf("failed to rotate credentials: %w", err)
	}

	s.logger.Info().Str("integrationID", conn.ID).Msg("Credentials rotated")
	return nil
}

// getOwned loads a connection and hides it behind not-found when the tenant
// in the context does not own it.
func (s *ConnectionService) getOwned(ctx context.Context, integrationID string) (*domain.IntegrationConnection, error) {
	conn, err := s.connections.GetByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if tenantID := domain.TenantIDFromContext(ctx); tenantID != "" && tenantID != conn.TenantID {
		return nil, domain.ErrConnectionNotFound
	}
	return conn, nil
}
