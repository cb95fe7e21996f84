package locker_test

import (
	"context"
	"testing"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/infrastructure/locker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRunLocker(t *testing.T) {
	ctx := context.Background()
	l := locker.NewMemoryRunLocker()

	lock, err := l.Acquire(ctx, "int-1", time.Minute)
	require.NoError(t, err)

	// Second acquire on the same integration fails; other integrations are
	// unaffected.
	_, err = l.Acquire(ctx, "int-1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	other, err := l.Acquire(ctx, "int-2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lock.Release(ctx))
	reacquired, err := l.Acquire(ctx, "int-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, reacquired.Release(ctx))
}
