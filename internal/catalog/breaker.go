package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerStore guards a Store with a circuit breaker. A missing product or
// variant is a normal answer and never trips the breaker.
type BreakerStore struct {
	next      Store
	variants  *gobreaker.CircuitBreaker[domain.Variant]
	available *gobreaker.CircuitBreaker[bool]
}

func NewBreakerStore(next Store, s BreakerSettings, logger *zap.Logger) *BreakerStore {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 10 * time.Second
	}

	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     s.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= s.MaxFailures
			},
			IsSuccessful: func(err error) bool {
				var gone callerGone
				return err == nil || errors.Is(err, ErrNotFound) || errors.As(err, &gone)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("catalog breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}
	}

	return &BreakerStore{
		next:      next,
		variants:  gobreaker.NewCircuitBreaker[domain.Variant](settings(s.Name + ".get_variant")),
		available: gobreaker.NewCircuitBreaker[bool](settings(s.Name + ".is_product_available")),
	}
}

func (b *BreakerStore) GetVariant(ctx context.Context, productID, variantID string) (domain.Variant, error) {
	v, err := b.variants.Execute(func() (domain.Variant, error) {
		v, err := b.next.GetVariant(ctx, productID, variantID)
		return v, markCallerGone(ctx, err)
	})
	return v, unwrapCallerGone(err)
}

func (b *BreakerStore) IsProductAvailable(ctx context.Context, productID string) (bool, error) {
	ok, err := b.available.Execute(func() (bool, error) {
		ok, err := b.next.IsProductAvailable(ctx, productID)
		return ok, markCallerGone(ctx, err)
	})
	return ok, unwrapCallerGone(err)
}

// callerGone marks a failure caused by the caller abandoning the lookup. It
// says nothing about catalog health and must not count toward tripping.
type callerGone struct{ err error }

func (c callerGone) Error() string { return c.err.Error() }
func (c callerGone) Unwrap() error { return c.err }

func markCallerGone(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil {
		return err
	}
	if errors.Is(context.Cause(ctx), ErrLookupTimeout) {
		return err
	}
	return callerGone{err: err}
}

func unwrapCallerGone(err error) error {
	var gone callerGone
	if errors.As(err, &gone) {
		return gone.err
	}
	return err
}
