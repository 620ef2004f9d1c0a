package handler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/dbtest"
	"emirates-backoffice/internal/database/models"
)

func newInventory(t *testing.T) (*InventoryHandler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewInventoryHandler(dbtest.Open(t), client), mr
}

func TestCreateAndGetProduct(t *testing.T) {
	s, mr := newInventory(t)
	ctx := context.Background()

	code := "GL-6MM"
	product, err := s.CreateProduct(ctx, CreateProductInput{
		ItemCode:      &code,
		ItemName:      " Clear glass 6mm ",
		Category:      models.ProductCategoryGlass,
		PriceFull:     decimal.RequireFromString("4200"),
		PriceHalf:     decimal.NewNullDecimal(decimal.RequireFromString("2200")),
		Stock:         decimal.RequireFromString("12.5"),
		AlarmQuantity: decimal.RequireFromString("3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Clear glass 6mm", product.ItemName)

	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, got.Stock.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, got.PriceHalf.Valid)
	assert.False(t, got.PricePerUnit.Valid)
	assert.True(t, mr.Exists(productCacheKey(product.ID)))

	cached, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ItemName, cached.ItemName)
	assert.True(t, got.Stock.Equal(cached.Stock))

	_, err = s.GetProduct(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.CreateProduct(ctx, CreateProductInput{ItemCode: &code, ItemName: "dup", Category: models.ProductCategoryGlass})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateProductValidation(t *testing.T) {
	s, _ := newInventory(t)
	ctx := context.Background()

	cases := []CreateProductInput{
		{ItemName: "", Category: models.ProductCategoryGlass},
		{ItemName: "Hinge", Category: "furniture"},
		{ItemName: "Hinge", Category: models.ProductCategoryAccessory, PriceFull: decimal.NewFromInt(-1)},
		{ItemName: "Hinge", Category: models.ProductCategoryAccessory, Stock: decimal.NewFromInt(-1)},
	}
	for _, in := range cases {
		_, err := s.CreateProduct(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
}

func TestDecrementStock(t *testing.T) {
	s, mr := newInventory(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, CreateProductInput{
		ItemName:      "Aluminium profile 2m",
		Category:      models.ProductCategoryProfile,
		PriceFull:     decimal.NewFromInt(950),
		Stock:         decimal.NewFromInt(5),
		AlarmQuantity: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	_, err = s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(productCacheKey(product.ID)))

	require.NoError(t, s.DecrementStock(ctx, product.ID, decimal.RequireFromString("3.5")))
	assert.False(t, mr.Exists(productCacheKey(product.ID)), "decrement drops the cached product")

	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, got.Stock.Equal(decimal.RequireFromString("1.5")), got.Stock.String())
	assert.True(t, got.LowOnStock())

	err = s.DecrementStock(ctx, product.ID, decimal.NewFromInt(2))
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "only 1.5 remaining")

	assert.ErrorIs(t, s.DecrementStock(ctx, product.ID, decimal.Zero), apperr.ErrInvalidInput)
	assert.ErrorIs(t, s.DecrementStock(ctx, 4040, decimal.NewFromInt(1)), apperr.ErrNotFound)
}

func TestListLowStock(t *testing.T) {
	s, _ := newInventory(t)
	ctx := context.Background()

	for _, p := range []struct {
		name         string
		stock, alarm int64
	}{
		{"Door lock", 1, 5},
		{"Window handle", 40, 5},
		{"Rubber seal", 5, 5},
	} {
		_, err := s.CreateProduct(ctx, CreateProductInput{
			ItemName:      p.name,
			Category:      models.ProductCategoryAccessory,
			PriceFull:     decimal.NewFromInt(100),
			Stock:         decimal.NewFromInt(p.stock),
			AlarmQuantity: decimal.NewFromInt(p.alarm),
		})
		require.NoError(t, err)
	}

	low, err := s.ListLowStock(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Door lock", low[0].ItemName)
	assert.Equal(t, "Rubber seal", low[1].ItemName)

	_, err = s.ListLowStock(ctx, 0, 101)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = s.ListLowStock(ctx, -1, 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestGetProductWithoutRedis(t *testing.T) {
	s := NewInventoryHandler(dbtest.Open(t), nil)
	product := dbtest.SeedProduct(t, s.db, "Mirror 4mm", "3100", "7")

	got, err := s.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mirror 4mm", got.ItemName)
}

func TestGetProductFreshBypassesCache(t *testing.T) {
	s, mr := newInventory(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, CreateProductInput{
		ItemName: "Sliding window frame",
		Category: models.ProductCategoryProfile,
		Stock:    decimal.RequireFromString("10"),
	})
	require.NoError(t, err)

	_, err = s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(productCacheKey(product.ID)))

	// stock changed behind the cache
	require.NoError(t, s.db.Model(&models.Product{}).Where("id = ?", product.ID).Update("stock", decimal.RequireFromString("2")).Error)

	stale, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, stale.Stock.Equal(decimal.RequireFromString("10")))

	fresh, err := s.GetProductFresh(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Stock.Equal(decimal.RequireFromString("2")))

	// the fresh read also repairs the cache
	again, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, again.Stock.Equal(decimal.RequireFromString("2")))

	_, err = s.GetProductFresh(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
