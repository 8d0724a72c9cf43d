package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
)

// CartCache holds read copies of carts. It is never consulted by a write.
//
// Every owner has a version floor: the highest cart version the cache has
// seen committed. Set refuses carts below the floor, so a refill that loaded
// its cart before a concurrent write cannot bring the old version back.
type CartCache interface {
	Get(ctx context.Context, ownerID string) (*domain.Cart, error)
	Set(ctx context.Context, ownerID string, cart *domain.Cart) error
	// Invalidate drops the cached cart and raises the owner's floor to
	// version, the version the write just committed.
	Invalidate(ctx context.Context, ownerID string, version int64) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleCart is returned by Set when a newer version has been committed.
	ErrStaleCart = errors.New("cart older than cached version")
)
