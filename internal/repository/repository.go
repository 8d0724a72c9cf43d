package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrVersionConflict = errors.New("cart version conflict")
)

// ListFilter selects a page of carts, most recently updated first.
type ListFilter struct {
	OwnerID string
	Offset  int64
	Limit   int64
}

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	// SaveCart writes the whole cart if the stored version still equals
	// cart.Version (or inserts it when cart.Version is 0) and bumps
	// cart.Version on success. A lost race returns ErrVersionConflict.
	SaveCart(ctx context.Context, cart *domain.Cart) error
	ListCarts(ctx context.Context, filter ListFilter) ([]*domain.Cart, int64, error)
}
