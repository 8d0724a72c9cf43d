package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(price string, stock int) domain.VariantSnapshot {
	return domain.VariantSnapshot{Type: "S", Price: decimal.RequireFromString(price), Stock: stock, Available: true}
}

func TestMemoryRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.GetCart(ctx, "user-1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	cart := domain.NewCart("user-1")
	cart.PutLine("tee", "tee-s", 2, snapshot("10.00", 5))
	require.NoError(t, repo.SaveCart(ctx, cart))
	assert.Equal(t, int64(1), cart.Version)

	got, err := repo.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.TotalValue.Equal(decimal.RequireFromString("20")))

	// returned carts are copies
	got.Lines[0].Quantity = 99
	again, err := repo.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Lines[0].Quantity)
}

func TestMemoryRepository_VersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.SaveCart(ctx, domain.NewCart("user-1")))

	first, err := repo.GetCart(ctx, "user-1")
	require.NoError(t, err)
	second, err := repo.GetCart(ctx, "user-1")
	require.NoError(t, err)

	first.PutLine("tee", "tee-s", 1, snapshot("10.00", 5))
	require.NoError(t, repo.SaveCart(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.PutLine("tee", "tee-m", 1, snapshot("12.50", 5))
	assert.ErrorIs(t, repo.SaveCart(ctx, second), ErrVersionConflict)
	assert.Equal(t, int64(1), second.Version)

	stored, err := repo.GetCart(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, "tee-s", stored.Lines[0].VariantID)
}

func TestMemoryRepository_ConcurrentFirstWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.SaveCart(ctx, domain.NewCart("user-1")))
	assert.ErrorIs(t, repo.SaveCart(ctx, domain.NewCart("user-1")), ErrVersionConflict)
}

func TestMemoryRepository_UnknownVersion(t *testing.T) {
	cart := domain.NewCart("user-1")
	cart.Version = 4
	assert.ErrorIs(t, NewMemoryRepository().SaveCart(context.Background(), cart), ErrVersionConflict)
}

func TestMemoryRepository_ListCarts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.SaveCart(ctx, domain.NewCart(fmt.Sprintf("user-%d", i))))
		time.Sleep(time.Millisecond)
	}

	carts, total, err := repo.ListCarts(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, carts, 2)
	assert.Equal(t, "user-4", carts[0].OwnerID)
	assert.Equal(t, "user-3", carts[1].OwnerID)

	carts, _, err = repo.ListCarts(ctx, ListFilter{Offset: 4, Limit: 2})
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.Equal(t, "user-0", carts[0].OwnerID)

	carts, total, err = repo.ListCarts(ctx, ListFilter{Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, carts)

	carts, total, err = repo.ListCarts(ctx, ListFilter{OwnerID: "user-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, carts, 1)
	assert.Equal(t, "user-2", carts[0].OwnerID)
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewMemoryRepository()

	_, err := repo.GetCart(ctx, "user-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.SaveCart(ctx, domain.NewCart("user-1")), context.Canceled)
}
