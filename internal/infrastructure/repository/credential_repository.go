package repository

import (
	"context"
	"fmt"
	"time"

	"invoicehub-sync/internal/infrastructure/repository/entity"
	"invoicehub-sync/internal/ports"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoCredentialStore implements CredentialStore using MongoDB. Secrets are
// encrypted before they reach the collection; the opaque reference handed
// back to callers is a random UUID with no relation to the secret.
type MongoCredentialStore struct {
	collection *mongo.Collection
	encryption ports.EncryptionService
}

// NewMongoCredentialStore creates a new MongoDB credential store
func NewMongoCredentialStore(db *mongo.Database, encryption ports.EncryptionService) ports.CredentialStore {
	return &MongoCredentialStore{
		collection: db.Collection("credentials"),
		encryption: encryption,
	}
}

// Store encrypts and persists credential material
func (r *MongoCredentialStore) Store(ctx context.Context, tenantID string, cred ports.Credential) (string, error) {
	encryptedToken, err := r.encryption.Encrypt(cred.Token)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}

	doc := entity.MongoCredentialDoc{
		Ref:            uuid.New().String(),
		TenantID:       tenantID,
		EncryptedToken: encryptedToken,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if cred.AccountID != "" {
		encryptedAccount, err := r.encryption.Encrypt(cred.AccountID)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt account id: %w", err)
		}
		doc.EncryptedAccount = encryptedAccount
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to store credentials: %w", err)
	}

	return doc.Ref, nil
}

// Get resolves a credential reference to the raw secret
func (r *MongoCredentialStore) Get(ctx context.Context, ref string) (ports.Credential, error) {
	var doc entity.MongoCredentialDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": ref}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return ports.Credential{}, fmt.Errorf("credential reference not found")
	}
	if err != nil {
		return ports.Credential{}, fmt.Errorf("failed to get credentials: %w", err)
	}

	token, err := r.encryption.Decrypt(doc.EncryptedToken)
	if err != nil {
		return ports.Credential{}, fmt.Errorf("failed to decrypt token: %w", err)
	}

	cred := ports.Credential{Token: token}
	if doc.EncryptedAccount != "" {
		accountID, err := r.encryption.Decrypt(doc.EncryptedAccount)
		if err != nil {
			return ports.Credential{}, fmt.Errorf("failed to decrypt account id: %w", err)
		}
		cred.AccountID = accountID
	}

	return cred, nil
}

// Rotate replaces the secret behind an existing reference
func (r *MongoCredentialStore) Rotate(ctx context.Context, ref string, cred ports.Credential) error {
	encryptedToken, err := r.encryption.Encrypt(cred.Token)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	update := bson.M{
		"encryptedToken": encryptedToken,
		"updatedAt":      time.Now(),
	}
	if cred.AccountID != "" {
		encryptedAccount, err := r.encryption.Encrypt(cred.AccountID)
		if err != nil {
			return fmt.Errorf("failed to encrypt account id: %w", err)
		}
		update["encryptedAccount"] = encryptedAccount
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": ref}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to rotate credentials: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("credential reference not found")
	}

	return nil
}

// Invalidate removes the secret
func (r *MongoCredentialStore) Invalidate(ctx context.Context, ref string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": ref}); err != nil {
		return fmt.Errorf("failed to invalidate credentials: %w", err)
	}
	return nil
}
