package catalog

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/variant-cart/internal/platform/mongodb"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func TestMongoStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	mongoContainer, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)
	db, err := mongodb.Connect(ctx, mongodb.Options{URI: uri, Database: "catalogtest"})
	require.NoError(t, err)

	runStoreContract(t, NewMongoStore(db))
}
