package service

import (
	"context"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/fjod/go_cart/variant-cart/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type ListCartsRequest struct {
	OwnerID string
	Page    int
	Limit   int
}

// ListCarts returns a page of stored cart summaries, most recently updated
// first. Summaries reflect stored snapshots; no sweep runs.
func (s *CartService) ListCarts(ctx context.Context, req ListCartsRequest) (*domain.Page, error) {
	if req.OwnerID != "" {
		if err := validateOwner(req.OwnerID); err != nil {
			return nil, err
		}
	}
	if req.Page < 0 || req.Limit < 0 {
		return nil, domain.InvalidArgument("page and limit must not be negative")
	}
	if req.Page == 0 {
		req.Page = DefaultPage
	}
	if req.Limit == 0 {
		req.Limit = DefaultPageSize
	}
	if req.Limit > MaxPageSize {
		req.Limit = MaxPageSize
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	carts, total, err := s.repo.ListCarts(storeCtx, repository.ListFilter{
		OwnerID: req.OwnerID,
		Offset:  int64(req.Page-1) * int64(req.Limit),
		Limit:   int64(req.Limit),
	})
	if err != nil {
		return nil, domain.UpstreamTimeout("list carts", err)
	}

	page := &domain.Page{
		TotalItems:  total,
		TotalPages:  (total + int64(req.Limit) - 1) / int64(req.Limit),
		CurrentPage: req.Page,
		Carts:       make([]domain.CartSummary, 0, len(carts)),
	}
	for _, c := range carts {
		page.Carts = append(page.Carts, domain.Summarize(c))
	}
	return page, nil
}

// CleanupAllCarts removes inactive lines from every cart holding any and
// returns how many carts were cleaned.
func (s *CartService) CleanupAllCarts(ctx context.Context) (int, error) {
	// collect first: cleaning bumps updated_at and would reshuffle later pages
	var owners []string
	for offset := int64(0); ; offset += MaxPageSize {
		storeCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
		carts, total, err := s.repo.ListCarts(storeCtx, repository.ListFilter{
			Offset: offset,
			Limit:  MaxPageSize,
		})
		cancel()
		if err != nil {
			return 0, domain.UpstreamTimeout("list carts", err)
		}
		for _, c := range carts {
			if c.InactiveCount() > 0 {
				owners = append(owners, c.OwnerID)
			}
		}
		if len(carts) == 0 || offset+MaxPageSize >= total {
			break
		}
	}

	cleaned := 0
	for _, ownerID := range owners {
		removed, err := s.CleanupInactiveLines(ctx, ownerID)
		if err != nil {
			return cleaned, err
		}
		if removed > 0 {
			cleaned++
		}
	}

	s.logger.Info("inactive lines cleaned up",
		zap.Int("carts_scanned_with_inactive", len(owners)),
		zap.Int("carts_cleaned", cleaned))
	return cleaned, nil
}
