package service

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/cart-api/internal/catalog"
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/logger"
	"github.com/fjod/go_cart/cart-api/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductService(t *testing.T) (*ProductService, *catalog.Repository) {
	repo, err := catalog.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations("../catalog/migrations"))

	return NewProductService(repo, logger.Nop()), repo
}

func TestProductService_CreateAndGet(t *testing.T) {
	svc, _ := setupProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.Product{
		Name:     "Stylus",
		Price:    decimal.RequireFromString("12.00"),
		Stock:    3,
		IsActive: true,
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stylus", got.Name)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestProductService_PriceChangeDoesNotRepriceCart(t *testing.T) {
	products, repo := setupProductService(t)
	ctx := context.Background()
	carts := NewCartService(repository.NewMemoryRepository(), newMockCache(), repo, "USD", logger.Nop())

	p, err := products.Create(ctx, &domain.Product{Name: "Ink", Price: decimal.NewFromInt(4), Stock: 10, IsActive: true})
	require.NoError(t, err)

	_, err = carts.AddToCart(ctx, "u", p.ID, 2)
	require.NoError(t, err)

	price := decimal.NewFromInt(40)
	_, err = products.Update(ctx, p.ID, domain.ProductUpdate{Price: &price})
	require.NoError(t, err)

	cart, err := carts.GetCart(ctx, "u")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8).Equal(cart.TotalAmount))
}

func TestProductService_UpdateMissing(t *testing.T) {
	svc, _ := setupProductService(t)

	stock := 1
	_, err := svc.Update(context.Background(), "missing", domain.ProductUpdate{Stock: &stock})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
