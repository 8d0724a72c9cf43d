package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/fjod/go_cart/variant-cart/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GetCartView loads the owner's cart and projects it. An owner without a cart
// sees the empty view.
func (s *CartService) GetCartView(ctx context.Context, ownerID string) (*domain.CartView, error) {
	cart, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return domain.EmptyView(ownerID), nil
	}
	return s.Project(ctx, cart)
}

// Project re-resolves every line, folds fresh catalog facts into the stored
// snapshots and persists once if any snapshot moved. Quantities are never
// touched. A lost version check reloads the cart and sweeps again.
func (s *CartService) Project(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	if cart == nil {
		return domain.NewView(nil), nil
	}

	current := cart.Clone()
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		changed, err := s.sweep(ctx, current)
		if err != nil {
			return nil, err
		}
		if !changed {
			return domain.NewView(current), nil
		}

		err = s.save(ctx, current)
		if err == nil {
			s.invalidateCache(current.OwnerID, current.Version)
			return domain.NewView(current), nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}

		lastErr = err
		s.logger.Debug("sweep lost version check, reloading",
			zap.String("owner_id", current.OwnerID),
			zap.Int64("version", current.Version),
			zap.Int("attempt", attempt))

		reloaded, err := s.load(ctx, current.OwnerID)
		if err != nil {
			return nil, err
		}
		if reloaded == nil {
			return domain.EmptyView(current.OwnerID), nil
		}
		current = reloaded
	}

	s.logger.Warn("sweep retries exhausted",
		zap.String("owner_id", current.OwnerID),
		zap.Int("attempts", s.opts.MaxAttempts))
	return nil, domain.ConcurrentModification(current.OwnerID, s.opts.MaxAttempts, lastErr)
}

// sweep refreshes line snapshots in place and reports whether any changed.
// A variant the catalog no longer offers keeps its type and price but loses
// its stock and availability.
func (s *CartService) sweep(ctx context.Context, cart *domain.Cart) (bool, error) {
	type result struct {
		snapshot domain.VariantSnapshot
		found    bool
	}
	fresh := make([]result, len(cart.Lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.SweepConcurrency)
	for i := range cart.Lines {
		productID, variantID := cart.Lines[i].ProductID, cart.Lines[i].VariantID
		g.Go(func() error {
			snapshot, found, err := s.resolve(gctx, productID, variantID)
			if err != nil {
				return err
			}
			fresh[i] = result{snapshot: snapshot, found: found}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	changed := false
	for i := range cart.Lines {
		line := &cart.Lines[i]
		target := fresh[i].snapshot
		if !fresh[i].found {
			target = line.Snapshot.Withdrawn()
		}
		if target.Equal(line.Snapshot) {
			continue
		}
		line.Snapshot = target
		line.UpdatedAt = now
		changed = true
	}

	if changed {
		cart.Recompute()
	}
	return changed, nil
}
