package seed

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm/internal/storage"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	require.NoError(t, Run(ctx, store))

	customers, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "test@example.com", customers[0].Email)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Phone", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 2, products[1].Stock)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	require.NoError(t, Run(ctx, store))
	require.NoError(t, Run(ctx, store))

	customers, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}
