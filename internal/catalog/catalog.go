package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
)

var (
	ErrNotFound     = errors.New("catalog: not found")
	ErrInvalidStock = errors.New("catalog: stock cannot be negative")
	ErrInvalidPrice = errors.New("catalog: price cannot be negative")
	// ErrLookupTimeout is the cause recorded when a lookup's own deadline fires.
	ErrLookupTimeout = errors.New("catalog: lookup timed out")
)

// WithLookupTimeout bounds a catalog lookup. A deadline set this way counts as
// a catalog failure, unlike cancellation or a deadline owned by the caller.
func WithLookupTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(ctx, d, ErrLookupTimeout)
}

// Store is the read side of the product catalog the cart depends on.
// Implementations must reflect the latest committed state on every call.
type Store interface {
	GetVariant(ctx context.Context, productID, variantID string) (domain.Variant, error)
	IsProductAvailable(ctx context.Context, productID string) (bool, error)
}

// Writer seeds and edits products. Catalog administration lives outside the
// cart service; tests and local development use it to drive stock changes.
type Writer interface {
	UpsertProduct(ctx context.Context, p domain.Product) error
}

func validateProduct(p domain.Product) error {
	if p.ID == "" {
		return errors.New("catalog: product id is required")
	}
	for _, v := range p.Variants {
		if v.ID == "" {
			return errors.New("catalog: variant id is required")
		}
		if v.Stock < 0 {
			return ErrInvalidStock
		}
		if v.Price.IsNegative() {
			return ErrInvalidPrice
		}
	}
	return nil
}
