package repository

import (
	"context"
	"fmt"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/infrastructure/repository/entity"
	"invoicehub-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSyncLedger implements SyncLedger using MongoDB. The unique compound
// index on (integrationId, externalOrderId) is the idempotency guarantee:
// a racing second insert fails with a duplicate key error and is resolved
// against the winning entry.
type MongoSyncLedger struct {
	collection *mongo.Collection
}

// NewMongoSyncLedger creates a new MongoDB sync ledger
func NewMongoSyncLedger(db *mongo.Database) ports.SyncLedger {
	return &MongoSyncLedger{
		collection: db.Collection("sync_ledger"),
	}
}

// Has reports whether the order has already been processed
func (r *MongoSyncLedger) Has(ctx context.Context, integrationID, externalOrderID string) (bool, error) {
	filter := bson.M{"integrationId": integrationID, "externalOrderId": externalOrderID}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check ledger: %w", err)
	}
	return count > 0, nil
}

// Get retrieves the ledger entry for an order
func (r *MongoSyncLedger) Get(ctx context.Context, integrationID, externalOrderID string) (*domain.SyncLedgerEntry, error) {
	var doc entity.MongoLedgerDoc
	filter := bson.M{"integrationId": integrationID, "externalOrderId": externalOrderID}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return doc.ToDomain(), nil
}

// Record writes the ledger entry for a processed order
func (r *MongoSyncLedger) Record(ctx context.Context, integrationID, externalOrderID, invoiceID string) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "integrationId", Value: 1},
			{Key: "externalOrderId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	doc := entity.MongoLedgerDoc{
		IntegrationID:   integrationID,
		ExternalOrderID: externalOrderID,
		InvoiceID:       invoiceID,
		ProcessedAt:     time.Now(),
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	// Lost a race against another writer. Same invoice is a no-op, anything
	// else is a conflict the caller must surface.
	existing, getErr := r.Get(ctx, integrationID, externalOrderID)
	if getErr != nil {
		return getErr
	}
	if existing != nil && existing.InvoiceID == invoiceID {
		return nil
	}
	return domain.ConflictError(
		fmt.Sprintf("order %s already recorded for integration %s", externalOrderID, integrationID))
}
