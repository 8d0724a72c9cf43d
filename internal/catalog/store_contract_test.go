package catalog

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readWriteStore interface {
	Store
	Writer
}

func testProduct() domain.Product {
	return domain.Product{
		ID:        "tee",
		Name:      "T-shirt",
		Available: true,
		Variants: []domain.Variant{
			{ID: "tee-s", Type: "S", Price: decimal.RequireFromString("10.00"), Stock: 5, Available: true},
			{ID: "tee-m", Type: "M", Price: decimal.RequireFromString("12.99"), Stock: 0, Available: true},
			{ID: "tee-l", Type: "L", Price: decimal.RequireFromString("14.50"), Stock: 3, Available: false},
		},
	}
}

// runStoreContract checks the behaviour every catalog store shares.
func runStoreContract(t *testing.T, store readWriteStore) {
	ctx := context.Background()
	require.NoError(t, store.UpsertProduct(ctx, testProduct()))

	t.Run("get variant", func(t *testing.T) {
		v, err := store.GetVariant(ctx, "tee", "tee-s")
		require.NoError(t, err)
		assert.Equal(t, "tee-s", v.ID)
		assert.Equal(t, "S", v.Type)
		assert.True(t, v.Price.Equal(decimal.RequireFromString("10")))
		assert.Equal(t, 5, v.Stock)
		assert.True(t, v.Available)

		v, err = store.GetVariant(ctx, "tee", "tee-l")
		require.NoError(t, err)
		assert.False(t, v.Available)
		assert.True(t, v.Price.Equal(decimal.RequireFromString("14.5")))
	})

	t.Run("missing variant", func(t *testing.T) {
		_, err := store.GetVariant(ctx, "tee", "tee-xl")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.GetVariant(ctx, "nope", "tee-s")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("product availability", func(t *testing.T) {
		ok, err := store.IsProductAvailable(ctx, "tee")
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = store.IsProductAvailable(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert replaces variants", func(t *testing.T) {
		p := testProduct()
		p.Available = false
		p.Variants = p.Variants[:1]
		p.Variants[0].Stock = 1
		p.Variants[0].Price = decimal.RequireFromString("9.95")
		require.NoError(t, store.UpsertProduct(ctx, p))

		ok, err := store.IsProductAvailable(ctx, "tee")
		require.NoError(t, err)
		assert.False(t, ok)

		v, err := store.GetVariant(ctx, "tee", "tee-s")
		require.NoError(t, err)
		assert.Equal(t, 1, v.Stock)
		assert.True(t, v.Price.Equal(decimal.RequireFromString("9.95")))

		_, err = store.GetVariant(ctx, "tee", "tee-m")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects invalid products", func(t *testing.T) {
		p := testProduct()
		p.ID = "bad"
		p.Variants[0].Stock = -1
		assert.ErrorIs(t, store.UpsertProduct(ctx, p), ErrInvalidStock)

		p = testProduct()
		p.ID = "bad"
		p.Variants[0].Price = decimal.RequireFromString("-1")
		assert.ErrorIs(t, store.UpsertProduct(ctx, p), ErrInvalidPrice)

		_, err := store.IsProductAvailable(ctx, "bad")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
