package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"

	"github.com/google/uuid"
)

// MemoryConnectionRepository is an in-memory ConnectionRepository used in
// tests and local development without a MongoDB instance.
type MemoryConnectionRepository struct {
	mu          sync.RWMutex
	connections map[string]domain.IntegrationConnection
}

// NewMemoryConnectionRepository creates an empty in-memory repository
func NewMemoryConnectionRepository() *MemoryConnectionRepository {
	return &MemoryConnectionRepository{
		connections: make(map[string]domain.IntegrationConnection),
	}
}

func (r *MemoryConnectionRepository) Create(_ context.Context, conn *domain.IntegrationConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.connections {
		if existing.TenantID == conn.TenantID &&
			existing.Provider == conn.Provider &&
			existing.ExternalAccountID == conn.ExternalAccountID {
			return fmt.Errorf("account %s already connected for tenant", conn.ExternalAccountID)
		}
	}

	r.connections[conn.ID] = *conn
	return nil
}

func (r *MemoryConnectionRepository) GetByID(_ context.Context, id string) (*domain.IntegrationConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[id]
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}
	copied := conn
	return &copied, nil
}

func (r *MemoryConnectionRepository) GetByAccount(_ context.Context, tenantID string, provider domain.Provider, externalAccountID string) (*domain.IntegrationConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conn := range r.connections {
		if conn.TenantID == tenantID && conn.Provider == provider && conn.ExternalAccountID == externalAccountID {
			copied := conn
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryConnectionRepository) ListActive(_ context.Context) ([]*domain.IntegrationConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*domain.IntegrationConnection
	for _, conn := range r.connections {
		if conn.IsActive {
			copied := conn
			active = append(active, &copied)
		}
	}
	return active, nil
}

func (r *MemoryConnectionRepository) Update(_ context.Context, conn *domain.IntegrationConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[conn.ID]; !ok {
		return domain.ErrConnectionNotFound
	}
	r.connections[conn.ID] = *conn
	return nil
}

// MemorySyncLedger is an in-memory SyncLedger with the same conflict
// semantics as the MongoDB implementation.
type MemorySyncLedger struct {
	mu      sync.RWMutex
	entries map[string]domain.SyncLedgerEntry
}

// NewMemorySyncLedger creates an empty in-memory ledger
func NewMemorySyncLedger() *MemorySyncLedger {
	return &MemorySyncLedger{
		entries: make(map[string]domain.SyncLedgerEntry),
	}
}

func ledgerKey(integrationID, externalOrderID string) string {
	return integrationID + "|" + externalOrderID
}

func (l *MemorySyncLedger) Has(_ context.Context, integrationID, externalOrderID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.entries[ledgerKey(integrationID, externalOrderID)]
	return ok, nil
}

func (l *MemorySyncLedger) Get(_ context.Context, integrationID, externalOrderID string) (*domain.SyncLedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[ledgerKey(integrationID, externalOrderID)]
	if !ok {
		return nil, nil
	}
	copied := entry
	return &copied, nil
}

func (l *MemorySyncLedger) Record(_ context.Context, integrationID, externalOrderID, invoiceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(integrationID, externalOrderID)
	if existing, ok := l.entries[key]; ok {
		if existing.InvoiceID == invoiceID {
			return nil
		}
		return domain.ConflictError(
			fmt.Sprintf("order %s already recorded for integration %s", externalOrderID, integrationID))
	}

	l.entries[key] = domain.SyncLedgerEntry{
		IntegrationID:   integrationID,
		ExternalOrderID: externalOrderID,
		InvoiceID:       invoiceID,
		ProcessedAt:     time.Now(),
	}
	return nil
}

// MemoryCredentialStore is an in-memory CredentialStore holding secrets
// unencrypted, for tests only.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]ports.Credential
}

// NewMemoryCredentialStore creates an empty in-memory credential store
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		creds: make(map[string]ports.Credential),
	}
}

func (s *MemoryCredentialStore) Store(_ context.Context, _ string, cred ports.Credential) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := uuid.New().String()
	s.creds[ref] = cred
	return ref, nil
}

func (s *MemoryCredentialStore) Get(_ context.Context, ref string) (ports.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[ref]
	if !ok {
		return ports.Credential{}, fmt.Errorf("credential reference not found")
	}
	return cred, nil
}

func (s *MemoryCredentialStore) Rotate(_ context.Context, ref string, cred ports.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creds[ref]; !ok {
		return fmt.Errorf("credential reference not found")
	}
	s.creds[ref] = cred
	return nil
}

func (s *MemoryCredentialStore) Invalidate(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.creds, ref)
	return nil
}
