package application

import (
	"context"
	"fmt"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"

	"github.com/rs/zerolog"
)

// SettingsService reads and updates the per-connection sync policy.
type SettingsService struct {
	connections ports.ConnectionRepository
	logger      zerolog.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(connections ports.ConnectionRepository, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		connections: connections,
		logger:      logger,
	}
}

// GetSettings returns the fully resolved settings of a connection.
func (s *SettingsService) GetSettings(ctx context.Context, integrationID string) (domain.IntegrationSettings, error) {
	conn, err := s.getOwned(ctx, integrationID)
	if err != nil {
		return domain.IntegrationSettings{}, err
	}
	return conn.Settings, nil
}

// UpdateSettings applies a partial settings patch over the connection's
// current settings. Out-of-range values reject the whole patch; nothing is
// clamped or partially applied.
func (s *SettingsService) UpdateSettings(ctx context.Context, integrationID string, patch domain.SettingsPatch) (domain.IntegrationSettings, error) {
	conn, err := s.getOwned(ctx, integrationID)
	if err != nil {
		return domain.IntegrationSettings{}, err
	}

	updated, err := conn.Settings.ApplyPatch(patch)
	if err != nil {
		return domain.IntegrationSettings{}, fmt.Errorf("%w: %v", domain.ErrInvalidSettings, err)
	}

	conn.Settings = updated
	conn.UpdatedAt = time.Now()
	if err := s.connections.Update(ctx, conn); err != nil {
		return domain.IntegrationSettings{}, fmt.Errorf("failed to update connection: %w", err)
	}

	s.logger.Info().
		Str("integrationID", conn.ID).
		Bool("autoGenerateInvoices", updated.AutoGenerateInvoices).
		Int("syncFrequencyMinutes", updated.SyncFrequencyMinutes).
		Msg("Settings updated")

	return updated, nil
}

func (s *SettingsService) getOwned(ctx context.Context, integrationID string) (*domain.IntegrationConnection, error) {
	conn, err := s.connections.GetByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if tenantID := domain.TenantIDFromContext(ctx); tenantID != "" && tenantID != conn.TenantID {
		return nil, domain.ErrConnectionNotFound
	}
	return conn, nil
}
