package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ledgerCacheTTL keeps hot dedup answers in Redis for a day. The Mongo
// ledger stays authoritative; a cache miss or Redis outage only costs an
// extra ledger read.
const ledgerCacheTTL = 24 * time.Hour

// CachedSyncLedger decorates a SyncLedger with a Redis read-through cache
// for the Has lookups a sync run performs once per fetched order.
type CachedSyncLedger struct {
	inner  ports.SyncLedger
	client *redis.Client
	logger zerolog.Logger
}

// NewCachedSyncLedger wraps a sync ledger with a Redis cache
func NewCachedSyncLedger(inner ports.SyncLedger, client *redis.Client, logger zerolog.Logger) ports.SyncLedger {
	return &CachedSyncLedger{
		inner:  inner,
		client: client,
		logger: logger,
	}
}

func ledgerCacheKey(integrationID, externalOrderID string) string {
	return fmt.Sprintf("sync:ledger:%s:%s", integrationID, externalOrderID)
}

// Has answers from Redis when possible, falling back to the ledger
func (c *CachedSyncLedger) Has(ctx context.Context, integrationID, externalOrderID string) (bool, error) {
	key := ledgerCacheKey(integrationID, externalOrderID)

	_, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Msg("Ledger cache read failed, falling back to store")
	}

	seen, err := c.inner.Has(ctx, integrationID, externalOrderID)
	if err != nil {
		return false, err
	}
	if seen {
		c.cacheSeen(ctx, key)
	}
	return seen, nil
}

// Get always reads the authoritative store
func (c *CachedSyncLedger) Get(ctx context.Context, integrationID, externalOrderID string) (*domain.SyncLedgerEntry, error) {
	return c.inner.Get(ctx, integrationID, externalOrderID)
}

// Record writes through to the store and marks the order seen in the cache
func (c *CachedSyncLedger) Record(ctx context.Context, integrationID, externalOrderID, invoiceID string) error {
	if err := c.inner.Record(ctx, integrationID, externalOrderID, invoiceID); err != nil {
		return err
	}
	c.cacheSeen(ctx, ledgerCacheKey(integrationID, externalOrderID))
	return nil
}

func (c *CachedSyncLedger) cacheSeen(ctx context.Context, key string) {
	if err := c.client.Set(ctx, key, "1", ledgerCacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Ledger cache write failed")
	}
}
