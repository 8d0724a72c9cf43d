package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
)

// MemoryRepository implements CartRepository with in-memory storage. It
// honours the same version check as the Mongo implementation.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart // ownerID -> cart
}

// NewMemoryRepository creates a new in-memory cart repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		carts: make(map[string]*domain.Cart),
	}
}

// GetCart returns a copy of the owner's cart
func (r *MemoryRepository) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, exists := r.carts[ownerID]
	if !exists {
		return nil, ErrCartNotFound
	}
	return cart.Clone(), nil
}

// SaveCart stores a copy of the cart when its version matches
func (r *MemoryRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.carts[cart.OwnerID]
	switch {
	case cart.IsNew() && exists:
		return ErrVersionConflict
	case !cart.IsNew() && (!exists || stored.Version != cart.Version):
		return ErrVersionConflict
	}

	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	cart.Version++

	r.carts[cart.OwnerID] = cart.Clone()
	return nil
}

// ListCarts returns a page of carts ordered by last update, newest first
func (r *MemoryRepository) ListCarts(ctx context.Context, f ListFilter) ([]*domain.Cart, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	matched := make([]*domain.Cart, 0, len(r.carts))
	for _, c := range r.carts {
		if f.OwnerID != "" && c.OwnerID != f.OwnerID {
			continue
		}
		matched = append(matched, c.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if f.Offset >= total {
		return []*domain.Cart{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}
