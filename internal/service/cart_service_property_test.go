package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/logger"
	"github.com/fjod/go_cart/cart-api/internal/repository"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func checkCartInvariants(t *rapid.T, cart *domain.Cart) {
	sum := decimal.Zero
	seen := make(map[string]bool)
	for _, item := range cart.Items {
		if item.Quantity < 1 {
			t.Fatalf("item %s has quantity %d", item.ProductID, item.Quantity)
		}
		if seen[item.ProductID] {
			t.Fatalf("product %s appears twice", item.ProductID)
		}
		seen[item.ProductID] = true
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !sum.Equal(cart.TotalAmount) {
		t.Fatalf("total %s != sum of items %s", cart.TotalAmount, sum)
	}
}

func TestCartService_TotalAlwaysMatchesItems(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var products []*domain.Product
		ids := make([]string, rapid.IntRange(1, 5).Draw(t, "products"))
		for i := range ids {
			ids[i] = fmt.Sprintf("p%d", i)
			products = append(products, &domain.Product{
				ID:    ids[i],
				Name:  ids[i],
				Price: decimal.New(rapid.Int64Range(0, 100_000).Draw(t, "cents"), -2),
				Stock: rapid.IntRange(0, 20).Draw(t, "stock"),
			})
		}

		repo := repository.NewMemoryRepository()
		svc := NewCartService(repo, newMockCache(), newMockCatalog(products...), "USD", logger.Nop())
		ctx := context.Background()
		const user = "u"

		t.Repeat(map[string]func(*rapid.T){
			"add": func(t *rapid.T) {
				id := rapid.SampledFrom(ids).Draw(t, "id")
				_, _ = svc.AddToCart(ctx, user, id, rapid.IntRange(1, 25).Draw(t, "qty"))
			},
			"update": func(t *rapid.T) {
				id := rapid.SampledFrom(ids).Draw(t, "id")
				_, _ = svc.UpdateCartItem(ctx, user, id, rapid.IntRange(0, 25).Draw(t, "qty"))
			},
			"remove": func(t *rapid.T) {
				_, _ = svc.RemoveFromCart(ctx, user, rapid.SampledFrom(ids).Draw(t, "id"))
			},
			"clear": func(t *rapid.T) {
				_ = svc.ClearCart(ctx, user)
			},
			"": func(t *rapid.T) {
				cart, err := repo.FindByUserID(ctx, user)
				if err != nil {
					return
				}
				checkCartInvariants(t, cart)
			},
		})
	})
}
