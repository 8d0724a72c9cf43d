// Package resolver turns catalog lookups into the variant snapshots cart lines cache.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/catalog"
	"github.com/fjod/go_cart/variant-cart/internal/domain"
)

// ErrNotFound covers a missing product, a withdrawn product and a missing
// variant alike.
var ErrNotFound = errors.New("variant not found")

// VariantResolver is what the cart service needs from the catalog.
type VariantResolver interface {
	Resolve(ctx context.Context, productID, variantID string) (domain.VariantSnapshot, error)
}

type Resolver struct {
	store   catalog.Store
	timeout time.Duration
}

func New(store catalog.Store, timeout time.Duration) *Resolver {
	return &Resolver{
		store:   store,
		timeout: timeout,
	}
}

// Resolve reads the variant from the catalog on every call. Each call is
// bounded by the resolver timeout on top of the caller's deadline.
func (r *Resolver) Resolve(ctx context.Context, productID, variantID string) (domain.VariantSnapshot, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = catalog.WithLookupTimeout(ctx, r.timeout)
		defer cancel() // releases resources if the lookup completes before timeout elapses
	}

	available, err := r.store.IsProductAvailable(ctx, productID)
	if err != nil {
		return domain.VariantSnapshot{}, wrap(err, productID, variantID)
	}
	if !available {
		return domain.VariantSnapshot{}, ErrNotFound
	}

	v, err := r.store.GetVariant(ctx, productID, variantID)
	if err != nil {
		return domain.VariantSnapshot{}, wrap(err, productID, variantID)
	}
	return v.Snapshot(), nil
}

func wrap(err error, productID, variantID string) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("resolve variant %s/%s: %w", productID, variantID, err)
}
