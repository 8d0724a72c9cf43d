package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/cache"
	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/fjod/go_cart/variant-cart/internal/repository"
	"github.com/fjod/go_cart/variant-cart/internal/resolver"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxAttempts      = 3
	DefaultStoreTimeout     = 3 * time.Second
	DefaultSweepConcurrency = 8
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type Options struct {
	// MaxAttempts bounds how often an operation is replayed after losing a
	// version check.
	MaxAttempts      int
	StoreTimeout     time.Duration
	SweepConcurrency int
}

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	resolver resolver.VariantResolver
	logger   *zap.Logger
	opts     Options
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(
	repo repository.CartRepository,
	cache cache.CartCache,
	resolver resolver.VariantResolver,
	logger *zap.Logger,
	opts Options,
) *CartService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.SweepConcurrency <= 0 {
		opts.SweepConcurrency = DefaultSweepConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		repo:     repo,
		cache:    cache,
		resolver: resolver,
		logger:   logger,
		opts:     opts,
	}
}

// GetCart returns the owner's stored cart, or nil when the owner has none.
// Reads go through the cache; concurrent misses for one owner share a single
// repository read.
func (s *CartService) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}

	v, err, _ := s.sfg.Do(ownerID, func() (any, error) {
		cart, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("owner_id", ownerID), zap.Error(err))
		}

		cart, err = s.load(ctx, ownerID)
		if err != nil || cart == nil {
			return cart, err
		}

		setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		switch err := s.cache.Set(setCtx, ownerID, cart); {
		case errors.Is(err, cache.ErrStaleCart):
			// a write committed while this read was in flight
			s.logger.Debug("stale cache refill skipped",
				zap.String("owner_id", ownerID),
				zap.Int64("version", cart.Version))
		case err != nil:
			s.logger.Warn("cache set failed", zap.String("owner_id", ownerID), zap.Error(err))
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	cart, _ := v.(*domain.Cart)
	if cart == nil {
		return nil, nil
	}
	// callers sharing a flight must not share the value
	return cart.Clone(), nil
}

// AddOrMergeLine adds quantity units of the variant to the owner's cart,
// creating the cart or the line as needed. A merge is checked against stock
// with the combined quantity.
func (s *CartService) AddOrMergeLine(ctx context.Context, ownerID, productID, variantID string, quantity int) (*domain.CartView, error) {
	if err := validateLine(ownerID, productID, variantID); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	return s.mutate(ctx, ownerID, "add", func(ctx context.Context) (*domain.Cart, bool, error) {
		snapshot, err := s.resolvePurchasable(ctx, productID, variantID, quantity)
		if err != nil {
			return nil, false, err
		}

		cart, err := s.load(ctx, ownerID)
		if err != nil {
			return nil, false, err
		}
		if cart == nil {
			cart = domain.NewCart(ownerID)
		}

		newQuantity := quantity
		if i := cart.Line(productID, variantID); i >= 0 {
			newQuantity = cart.Lines[i].Quantity + quantity
			if newQuantity > snapshot.Stock {
				return nil, false, domain.InsufficientStock(productID, variantID, newQuantity, snapshot.Stock)
			}
		}

		cart.PutLine(productID, variantID, newQuantity, snapshot)
		if err := s.save(ctx, cart); err != nil {
			return nil, false, err
		}
		return cart, true, nil
	})
}

// SetLineQuantity overwrites the quantity of an existing line after a fresh
// stock check. Zero is not a quantity; RemoveLine deletes lines.
func (s *CartService) SetLineQuantity(ctx context.Context, ownerID, productID, variantID string, quantity int) (*domain.CartView, error) {
	if err := validateLine(ownerID, productID, variantID); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	return s.mutate(ctx, ownerID, "set_quantity", func(ctx context.Context) (*domain.Cart, bool, error) {
		cart, err := s.load(ctx, ownerID)
		if err != nil {
			return nil, false, err
		}
		if cart == nil || cart.Line(productID, variantID) < 0 {
			return nil, false, domain.LineNotFound(productID, variantID)
		}

		snapshot, err := s.resolvePurchasable(ctx, productID, variantID, quantity)
		if err != nil {
			return nil, false, err
		}

		cart.PutLine(productID, variantID, quantity, snapshot)
		if err := s.save(ctx, cart); err != nil {
			return nil, false, err
		}
		return cart, true, nil
	})
}

// RemoveLine deletes the line for the pair. Removing a line that is not there
// succeeds without writing.
func (s *CartService) RemoveLine(ctx context.Context, ownerID, productID, variantID string) (*domain.CartView, error) {
	if err := validateLine(ownerID, productID, variantID); err != nil {
		return nil, err
	}

	return s.mutate(ctx, ownerID, "remove", func(ctx context.Context) (*domain.Cart, bool, error) {
		cart, err := s.load(ctx, ownerID)
		if err != nil || cart == nil {
			return cart, false, err
		}
		if !cart.RemoveLine(productID, variantID) {
			return cart, false, nil
		}
		if err := s.save(ctx, cart); err != nil {
			return nil, false, err
		}
		return cart, true, nil
	})
}

// ClearCart empties the cart but keeps it, so later adds reuse the same cart.
func (s *CartService) ClearCart(ctx context.Context, ownerID string) (*domain.CartView, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}

	return s.mutate(ctx, ownerID, "clear", func(ctx context.Context) (*domain.Cart, bool, error) {
		cart, err := s.load(ctx, ownerID)
		if err != nil || cart == nil {
			return cart, false, err
		}
		if len(cart.Lines) == 0 {
			return cart, false, nil
		}
		cart.Clear()
		if err := s.save(ctx, cart); err != nil {
			return nil, false, err
		}
		return cart, true, nil
	})
}

// CleanupInactiveLines drops every line the stored cart marks inactive and
// returns how many were dropped.
func (s *CartService) CleanupInactiveLines(ctx context.Context, ownerID string) (int, error) {
	if err := validateOwner(ownerID); err != nil {
		return 0, err
	}

	removed := 0
	_, err := s.mutate(ctx, ownerID, "cleanup", func(ctx context.Context) (*domain.Cart, bool, error) {
		removed = 0
		cart, err := s.load(ctx, ownerID)
		if err != nil || cart == nil {
			return cart, false, err
		}
		removed = cart.RemoveInactive()
		if removed == 0 {
			return cart, false, nil
		}
		if err := s.save(ctx, cart); err != nil {
			return nil, false, err
		}
		return cart, true, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

type attemptFunc func(ctx context.Context) (cart *domain.Cart, wrote bool, err error)

// mutate replays attempt until it commits, fails for a reason other than a
// lost version check, or runs out of attempts.
func (s *CartService) mutate(ctx context.Context, ownerID, op string, attempt attemptFunc) (*domain.CartView, error) {
	var lastErr error
	for i := 1; i <= s.opts.MaxAttempts; i++ {
		cart, wrote, err := attempt(ctx)
		if err == nil {
			if wrote {
				s.invalidateCache(ownerID, cart.Version)
			}
			return viewOf(ownerID, cart), nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}

		lastErr = err
		s.logger.Debug("cart version conflict",
			zap.String("op", op),
			zap.String("owner_id", ownerID),
			zap.Int("attempt", i))
	}

	s.logger.Warn("cart write retries exhausted",
		zap.String("op", op),
		zap.String("owner_id", ownerID),
		zap.Int("attempts", s.opts.MaxAttempts))
	return nil, domain.ConcurrentModification(ownerID, s.opts.MaxAttempts, lastErr)
}

// load returns nil without error when the owner has no cart.
func (s *CartService) load(ctx context.Context, ownerID string) (*domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	cart, err := s.repo.GetCart(ctx, ownerID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.UpstreamTimeout("load cart", err)
	}
	return cart, nil
}

// save passes ErrVersionConflict through untouched so mutate can retry.
func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return domain.UpstreamTimeout("save cart", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	err := s.repo.SaveCart(ctx, cart)
	if err == nil || errors.Is(err, repository.ErrVersionConflict) {
		return err
	}
	return domain.UpstreamTimeout("save cart", err)
}

// resolve reports found=false when the catalog no longer offers the variant.
func (s *CartService) resolve(ctx context.Context, productID, variantID string) (domain.VariantSnapshot, bool, error) {
	snapshot, err := s.resolver.Resolve(ctx, productID, variantID)
	if errors.Is(err, resolver.ErrNotFound) {
		return domain.VariantSnapshot{}, false, nil
	}
	if err != nil {
		return domain.VariantSnapshot{}, false, domain.UpstreamTimeout("resolve variant", err)
	}
	return snapshot, true, nil
}

func (s *CartService) resolvePurchasable(ctx context.Context, productID, variantID string, quantity int) (domain.VariantSnapshot, error) {
	snapshot, found, err := s.resolve(ctx, productID, variantID)
	if err != nil {
		return domain.VariantSnapshot{}, err
	}
	if !found || !snapshot.Available || snapshot.Stock <= 0 {
		return domain.VariantSnapshot{}, domain.VariantUnavailable(productID, variantID)
	}
	if quantity > snapshot.Stock {
		return domain.VariantSnapshot{}, domain.InsufficientStock(productID, variantID, quantity, snapshot.Stock)
	}
	return snapshot, nil
}

func (s *CartService) invalidateCache(ownerID string, version int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, ownerID, version); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func viewOf(ownerID string, cart *domain.Cart) *domain.CartView {
	if cart == nil {
		return domain.EmptyView(ownerID)
	}
	return domain.NewView(cart)
}

func validateOwner(ownerID string) error {
	if !idPattern.MatchString(ownerID) {
		return domain.InvalidArgument("invalid owner id %q", ownerID)
	}
	return nil
}

func validateLine(ownerID, productID, variantID string) error {
	if err := validateOwner(ownerID); err != nil {
		return err
	}
	if !idPattern.MatchString(productID) {
		return domain.InvalidArgument("invalid product id %q", productID)
	}
	if !idPattern.MatchString(variantID) {
		return domain.InvalidArgument("invalid variant id %q", variantID)
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return domain.InvalidArgument("quantity must be at least 1, got %d", quantity)
	}
	return nil
}
