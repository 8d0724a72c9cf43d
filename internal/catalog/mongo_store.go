package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/fjod/go_cart/variant-cart/internal/platform/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productDocument struct {
	ID        string            `bson:"_id"`
	Name      string            `bson:"name"`
	Available bool              `bson:"is_available"`
	Variants  []variantDocument `bson:"variants"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

type variantDocument struct {
	ID        string               `bson:"_id"`
	Type      string               `bson:"variant_type"`
	Price     primitive.Decimal128 `bson:"price"`
	Stock     int                  `bson:"stock"`
	Available bool                 `bson:"available"`
}

// MongoStore reads products with embedded variants from the products collection.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection("products")}
}

func (m *MongoStore) GetVariant(ctx context.Context, productID, variantID string) (domain.Variant, error) {
	var doc productDocument
	opts := options.FindOne().SetProjection(bson.M{
		"variants": bson.M{"$elemMatch": bson.M{"_id": variantID}},
	})
	err := m.collection.FindOne(ctx, bson.M{"_id": productID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Variant{}, ErrNotFound
		}
		return domain.Variant{}, fmt.Errorf("failed to get variant: %w", err)
	}
	if len(doc.Variants) == 0 {
		return domain.Variant{}, ErrNotFound
	}
	return fromVariantDocument(doc.Variants[0])
}

func (m *MongoStore) IsProductAvailable(ctx context.Context, productID string) (bool, error) {
	var doc struct {
		Available bool `bson:"is_available"`
	}
	opts := options.FindOne().SetProjection(bson.M{"is_available": 1})
	err := m.collection.FindOne(ctx, bson.M{"_id": productID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.Available, nil
}

func (m *MongoStore) UpsertProduct(ctx context.Context, p domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}

	doc := productDocument{
		ID:        p.ID,
		Name:      p.Name,
		Available: p.Available,
		Variants:  make([]variantDocument, 0, len(p.Variants)),
		UpdatedAt: time.Now().UTC(),
	}
	for _, v := range p.Variants {
		price, err := mongodb.ToDecimal128(v.Price)
		if err != nil {
			return err
		}
		doc.Variants = append(doc.Variants, variantDocument{
			ID:        v.ID,
			Type:      v.Type,
			Price:     price,
			Stock:     v.Stock,
			Available: v.Available,
		})
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func fromVariantDocument(doc variantDocument) (domain.Variant, error) {
	price, err := mongodb.FromDecimal128(doc.Price)
	if err != nil {
		return domain.Variant{}, err
	}
	return domain.Variant{
		ID:        doc.ID,
		Type:      doc.Type,
		Price:     price,
		Stock:     doc.Stock,
		Available: doc.Available,
	}, nil
}
