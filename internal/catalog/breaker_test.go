package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flakyStore struct {
	m     sync.Mutex
	err   error
	calls int
}

func (f *flakyStore) GetVariant(context.Context, string, string) (domain.Variant, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Variant{}, f.err
	}
	return domain.Variant{ID: "tee-s", Stock: 1, Available: true}, nil
}

func (f *flakyStore) IsProductAvailable(context.Context, string) (bool, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func (f *flakyStore) set(err error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.err = err
}

func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	next := &flakyStore{err: errors.New("connection refused")}
	store := NewBreakerStore(next, BreakerSettings{Name: "test", MaxFailures: 3, OpenTimeout: 50 * time.Millisecond}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.GetVariant(ctx, "tee", "tee-s")
		require.Error(t, err)
	}

	_, err := store.GetVariant(ctx, "tee", "tee-s")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, next.calls)

	next.set(nil)
	require.Eventually(t, func() bool {
		v, err := store.GetVariant(ctx, "tee", "tee-s")
		return err == nil && v.ID == "tee-s"
	}, time.Second, 20*time.Millisecond)
}

func TestBreakerStore_NotFoundKeepsClosed(t *testing.T) {
	next := &flakyStore{err: ErrNotFound}
	store := NewBreakerStore(next, BreakerSettings{Name: "test", MaxFailures: 1}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.IsProductAvailable(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 5, next.calls)
}

func TestBreakerStore_SeparateCircuits(t *testing.T) {
	next := &flakyStore{err: errors.New("timeout")}
	store := NewBreakerStore(next, BreakerSettings{Name: "test", MaxFailures: 1, OpenTimeout: time.Minute}, zap.NewNop())
	ctx := context.Background()

	_, err := store.GetVariant(ctx, "tee", "tee-s")
	require.Error(t, err)
	_, err = store.GetVariant(ctx, "tee", "tee-s")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	next.set(nil)
	ok, err := store.IsProductAvailable(ctx, "tee")
	require.NoError(t, err)
	assert.True(t, ok)
}

// waitingStore fails productID "bad" at once and blocks every other lookup
// until its context ends.
type waitingStore struct{}

func (waitingStore) GetVariant(ctx context.Context, productID, _ string) (domain.Variant, error) {
	if productID == "bad" {
		return domain.Variant{}, errors.New("catalog unreachable")
	}
	<-ctx.Done()
	return domain.Variant{}, ctx.Err()
}

func (waitingStore) IsProductAvailable(ctx context.Context, productID string) (bool, error) {
	if productID == "bad" {
		return false, errors.New("catalog unreachable")
	}
	<-ctx.Done()
	return false, ctx.Err()
}

func TestBreakerStore_CallerCancellationKeepsClosed(t *testing.T) {
	store := NewBreakerStore(waitingStore{}, BreakerSettings{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.IsProductAvailable(ctx, "tee")
		}(i)
	}
	cancel()
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	// one genuine failure stays below the threshold
	_, err := store.IsProductAvailable(context.Background(), "bad")
	assert.ErrorContains(t, err, "catalog unreachable")
	_, err = store.IsProductAvailable(context.Background(), "bad")
	assert.ErrorContains(t, err, "catalog unreachable")
	_, err = store.IsProductAvailable(context.Background(), "bad")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreakerStore_CallerDeadlineKeepsClosed(t *testing.T) {
	store := NewBreakerStore(waitingStore{}, BreakerSettings{Name: "test", MaxFailures: 1, OpenTimeout: time.Minute}, zap.NewNop())

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := store.GetVariant(ctx, "tee", "tee-s")
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestBreakerStore_LookupTimeoutTrips(t *testing.T) {
	store := NewBreakerStore(waitingStore{}, BreakerSettings{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())

	for i := 0; i < 2; i++ {
		ctx, cancel := WithLookupTimeout(context.Background(), 5*time.Millisecond)
		_, err := store.GetVariant(ctx, "tee", "tee-s")
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	_, err := store.GetVariant(context.Background(), "tee", "tee-s")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
