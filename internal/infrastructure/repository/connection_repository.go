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

// MongoConnectionRepository implements ConnectionRepository using MongoDB
type MongoConnectionRepository struct {
	collection *mongo.Collection
}

// NewMongoConnectionRepository creates a new MongoDB connection repository
func NewMongoConnectionRepository(db *mongo.Database) ports.ConnectionRepository {
	return &MongoConnectionRepository{
		collection: db.Collection("integration_connections"),
	}
}

// Create creates a new integration connection
func (r *MongoConnectionRepository) Create(ctx context.Context, conn *domain.IntegrationConnection) error {
	doc := entity.MongoConnectionDocFromDomain(conn)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	// One connection per marketplace account per tenant
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "provider", Value: 1},
			{Key: "externalAccountId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("account %s already connected for tenant", conn.ExternalAccountID)
		}
		return fmt.Errorf("failed to create connection: %w", err)
	}

	return nil
}

// GetByID retrieves a connection by its ID
func (r *MongoConnectionRepository) GetByID(ctx context.Context, id string) (*domain.IntegrationConnection, error) {
	var doc entity.MongoConnectionDoc
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return doc.ToDomain(), nil
}

// GetByAccount retrieves a connection by tenant, provider and external account
func (r *MongoConnectionRepository) GetByAccount(ctx context.Context, tenantID string, provider domain.Provider, externalAccountID string) (*domain.IntegrationConnection, error) {
	var doc entity.MongoConnectionDoc
	filter := bson.M{
		"tenantId":          tenantID,
		"provider":          provider.String(),
		"externalAccountId": externalAccountID,
	}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListActive returns all connections eligible for scheduled syncs
func (r *MongoConnectionRepository) ListActive(ctx context.Context) ([]*domain.IntegrationConnection, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"isActive": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer cursor.Close(ctx)

	var connections []*domain.IntegrationConnection
	for cursor.Next(ctx) {
		var doc entity.MongoConnectionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode connection: %w", err)
		}
		connections = append(connections, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	return connections, nil
}

// Update replaces the stored connection state
func (r *MongoConnectionRepository) Update(ctx context.Context, conn *domain.IntegrationConnection) error {
	doc := entity.MongoConnectionDocFromDomain(conn)
	doc.UpdatedAt = time.Now()

	filter := bson.M{"_id": conn.ID}
	result, err := r.collection.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrConnectionNotFound
	}

	return nil
}
