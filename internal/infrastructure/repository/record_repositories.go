package repository

import (
	"context"
	"fmt"
	"time"

	"invoicehub-sync/internal/application"
	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/infrastructure/repository/entity"
	"invoicehub-sync/internal/ports"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCustomerDirectory implements CustomerDirectory over the customer
// records collection of the surrounding invoicing backend.
type MongoCustomerDirectory struct {
	collection *mongo.Collection
}

// NewMongoCustomerDirectory creates a new MongoDB customer directory
func NewMongoCustomerDirectory(db *mongo.Database) ports.CustomerDirectory {
	return &MongoCustomerDirectory{
		collection: db.Collection("customers"),
	}
}

// FindByIdentity looks up a customer by the buyer identity key
func (r *MongoCustomerDirectory) FindByIdentity(ctx context.Context, tenantID, identityKey string) (string, error) {
	var doc entity.MongoCustomerDoc
	filter := bson.M{"tenantId": tenantID, "identityKey": identityKey}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find customer: %w", err)
	}

	return doc.ID, nil
}

// Create materializes a new customer record
func (r *MongoCustomerDirectory) Create(ctx context.Context, tenantID string, draft domain.CustomerDraft) (string, error) {
	buyer := domain.Buyer{FullName: draft.Name, Email: draft.Email}

	doc := entity.MongoCustomerDoc{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		IdentityKey: buyer.IdentityKey(),
		Name:        draft.Name,
		Email:       draft.Email,
		Phone:       draft.Phone,
		Address:     draft.Address,
		CreatedAt:   time.Now(),
	}

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "identityKey", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a create race, return the winner.
			return r.FindByIdentity(ctx, tenantID, doc.IdentityKey)
		}
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	return doc.ID, nil
}

// MongoProductCatalog implements ProductCatalog over the product records
// collection.
type MongoProductCatalog struct {
	collection *mongo.Collection
}

// NewMongoProductCatalog creates a new MongoDB product catalog
func NewMongoProductCatalog(db *mongo.Database) ports.ProductCatalog {
	return &MongoProductCatalog{
		collection: db.Collection("products"),
	}
}

// FindBySKU looks up a product by (tenant, SKU)
func (r *MongoProductCatalog) FindBySKU(ctx context.Context, tenantID, sku string) (string, error) {
	return r.findOne(ctx, bson.M{"tenantId": tenantID, "sku": sku})
}

// FindByExternalRef looks up a product by the marketplace product identifier
func (r *MongoProductCatalog) FindByExternalRef(ctx context.Context, tenantID, externalRef string) (string, error) {
	return r.findOne(ctx, bson.M{"tenantId": tenantID, "externalRef": externalRef})
}

func (r *MongoProductCatalog) findOne(ctx context.Context, filter bson.M) (string, error) {
	var doc entity.MongoProductDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find product: %w", err)
	}
	return doc.ID, nil
}

// Create materializes a new product record
func (r *MongoProductCatalog) Create(ctx context.Context, tenantID string, draft domain.ProductDraft) (string, error) {
	doc := entity.MongoProductDoc{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Name:        draft.Name,
		SKU:         draft.SKU,
		ExternalRef: draft.ExternalRef,
		UnitPrice:   draft.UnitPrice.String(),
		VatRate:     draft.VatRate.String(),
		CreatedAt:   time.Now(),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}

	return doc.ID, nil
}

// MongoInvoiceIssuer implements InvoiceIssuer over the invoices collection.
// Totals are computed once at issue time from the full-precision line data.
type MongoInvoiceIssuer struct {
	collection *mongo.Collection
}

// NewMongoInvoiceIssuer creates a new MongoDB invoice issuer
func NewMongoInvoiceIssuer(db *mongo.Database) ports.InvoiceIssuer {
	return &MongoInvoiceIssuer{
		collection: db.Collection("invoices"),
	}
}

// Create issues an invoice from a mapped draft
func (r *MongoInvoiceIssuer) Create(ctx context.Context, companyID string, draft domain.DraftInvoice) (string, error) {
	if draft.CustomerID == "" {
		return "", domain.OrderError("missing_customer", "draft invoice has no resolved customer", nil)
	}
	if len(draft.Items) == 0 {
		return "", domain.OrderError("empty_invoice", "draft invoice has no items", nil)
	}

	totals := application.Totals(draft)

	status := "issued"
	if draft.MarkPaid {
		status = "paid"
	}

	items := make([]entity.MongoInvoiceItemDoc, 0, len(draft.Items))
	for _, item := range draft.Items {
		items = append(items, entity.MongoInvoiceItemDoc{
			Description: item.Description,
			ProductRef:  item.ProductRef,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.String(),
			VatRate:     item.VatRate.String(),
		})
	}

	doc := entity.MongoInvoiceDoc{
		ID:              uuid.New().String(),
		CompanyID:       companyID,
		CustomerID:      draft.CustomerID,
		ExternalOrderID: draft.ExternalOrderID,
		Currency:        draft.Currency,
		Items:           items,
		TotalNet:        totals.Net.String(),
		TotalTax:        totals.Tax.String(),
		TotalGross:      totals.Gross.String(),
		Status:          status,
		IssuedAt:        time.Now(),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to create invoice: %w", err)
	}

	return doc.ID, nil
}
