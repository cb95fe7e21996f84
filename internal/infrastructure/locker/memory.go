package locker

import (
	"context"
	"sync"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"
)

// MemoryRunLocker is an in-process RunLocker for tests and single-instance
// deployments without Redis.
type MemoryRunLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryRunLocker creates an empty in-memory run locker
func NewMemoryRunLocker() *MemoryRunLocker {
	return &MemoryRunLocker{
		held: make(map[string]struct{}),
	}
}

// Acquire obtains the lock, failing immediately when it is already held.
// The TTL is ignored: an in-process lock dies with the process.
func (l *MemoryRunLocker) Acquire(_ context.Context, integrationID string, _ time.Duration) (ports.RunLock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[integrationID]; ok {
		return nil, domain.ErrRunInProgress
	}
	l.held[integrationID] = struct{}{}

	return &memoryRunLock{locker: l, integrationID: integrationID}, nil
}

type memoryRunLock struct {
	locker        *MemoryRunLocker
	integrationID string
}

func (l *memoryRunLock) Release(context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	delete(l.locker.held, l.integrationID)
	return nil
}
