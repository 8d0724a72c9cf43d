package repository

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

type cartDocument struct {
	ID            string               `bson:"_id"`
	OwnerID       string               `bson:"owner_id"`
	Lines         []lineDocument       `bson:"lines"`
	TotalQuantity int                  `bson:"total_quantity"`
	TotalValue    primitive.Decimal128 `bson:"total_value"`
	Active        bool                 `bson:"is_active"`
	Version       int64                `bson:"version"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

type lineDocument struct {
	ID        string               `bson:"_id"`
	ProductID string               `bson:"product_id"`
	VariantID string               `bson:"variant_id"`
	Quantity  int                  `bson:"quantity"`
	Variant   variantDetails       `bson:"variant_details"`
	Subtotal  primitive.Decimal128 `bson:"subtotal"`
	Active    bool                 `bson:"is_active"`
	AddedAt   time.Time            `bson:"added_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

type variantDetails struct {
	Type      string               `bson:"variant_type"`
	Price     primitive.Decimal128 `bson:"price"`
	Stock     int                  `bson:"stock"`
	Available bool                 `bson:"available"`
}

type mongoRepository struct {
	collection *mongo.Collection
}

func (m mongoRepository) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	var doc cartDocument

	filter := bson.M{"owner_id": ownerID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return fromDocument(doc)
}

func (m mongoRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	doc, err := toDocument(cart)
	if err != nil {
		return err
	}
	doc.Version = cart.Version + 1

	if cart.IsNew() {
		if _, err := m.collection.InsertOne(ctx, doc); err != nil {
			// the unique owner index rejects a second first-write for the same owner
			if mongo.IsDuplicateKeyError(err) {
				return ErrVersionConflict
			}
			return fmt.Errorf("failed to create cart: %w", err)
		}
		cart.Version = doc.Version
		return nil
	}

	filter := bson.M{"owner_id": cart.OwnerID, "version": cart.Version}
	result, err := m.collection.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	cart.Version = doc.Version
	return nil
}

func (m mongoRepository) ListCarts(ctx context.Context, f ListFilter) ([]*domain.Cart, int64, error) {
	filter := bson.M{}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}

	total, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count carts: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(f.Offset)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list carts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []cartDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode carts: %w", err)
	}

	carts := make([]*domain.Cart, 0, len(docs))
	for _, doc := range docs {
		cart, err := fromDocument(doc)
		if err != nil {
			return nil, 0, err
		}
		carts = append(carts, cart)
	}
	return carts, total, nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
		{
			Keys: bson.D{{Key: "lines.product_id", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

// EnsureIndexes creates the cart indexes if the repository is Mongo backed.
func EnsureIndexes(ctx context.Context, repo CartRepository) error {
	if m, ok := repo.(*mongoRepository); ok {
		return m.CreateIndexes(ctx)
	}
	return nil
}

func toDocument(c *domain.Cart) (cartDocument, error) {
	totalValue, err := mongodb.ToDecimal128(c.TotalValue)
	if err != nil {
		return cartDocument{}, err
	}

	doc := cartDocument{
		ID:            c.ID,
		OwnerID:       c.OwnerID,
		Lines:         make([]lineDocument, 0, len(c.Lines)),
		TotalQuantity: c.TotalQuantity,
		TotalValue:    totalValue,
		Active:        c.Active,
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}

	for _, l := range c.Lines {
		price, err := mongodb.ToDecimal128(l.Snapshot.Price)
		if err != nil {
			return cartDocument{}, err
		}
		subtotal, err := mongodb.ToDecimal128(l.Subtotal)
		if err != nil {
			return cartDocument{}, err
		}
		doc.Lines = append(doc.Lines, lineDocument{
			ID:        l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			Variant: variantDetails{
				Type:      l.Snapshot.Type,
				Price:     price,
				Stock:     l.Snapshot.Stock,
				Available: l.Snapshot.Available,
			},
			Subtotal:  subtotal,
			Active:    l.Active,
			AddedAt:   l.AddedAt,
			UpdatedAt: l.UpdatedAt,
		})
	}
	return doc, nil
}

func fromDocument(doc cartDocument) (*domain.Cart, error) {
	totalValue, err := mongodb.FromDecimal128(doc.TotalValue)
	if err != nil {
		return nil, err
	}

	cart := &domain.Cart{
		ID:            doc.ID,
		OwnerID:       doc.OwnerID,
		Lines:         make([]domain.CartLine, 0, len(doc.Lines)),
		TotalQuantity: doc.TotalQuantity,
		TotalValue:    totalValue,
		Active:        doc.Active,
		Version:       doc.Version,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}

	for _, l := range doc.Lines {
		price, err := mongodb.FromDecimal128(l.Variant.Price)
		if err != nil {
			return nil, err
		}
		subtotal, err := mongodb.FromDecimal128(l.Subtotal)
		if err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:        l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			Snapshot: domain.VariantSnapshot{
				Type:      l.Variant.Type,
				Price:     price,
				Stock:     l.Variant.Stock,
				Available: l.Variant.Available,
			},
			Subtotal:  subtotal,
			Active:    l.Active,
			AddedAt:   l.AddedAt,
			UpdatedAt: l.UpdatedAt,
		})
	}
	return cart, nil
}
