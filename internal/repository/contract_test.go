package repository

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomCart(userID string) *domain.Cart {
	cart := domain.NewCart(userID, gofakeit.CurrencyShort())
	for range gofakeit.IntRange(1, 4) {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:   gofakeit.UUID(),
			ProductName: gofakeit.ProductName(),
			Price:       decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2),
			Quantity:    gofakeit.IntRange(1, 10),
		})
	}
	cart.Recalculate()
	return cart
}

func assertSameCart(t *testing.T, want, got *domain.Cart) {
	t.Helper()
	opts := cmp.Options{
		cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
		cmpopts.IgnoreFields(domain.Cart{}, "CreatedAt", "UpdatedAt"),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("cart mismatch (-want +got):\n%s", diff)
	}
}

// testCartRepository runs the behaviour every CartRepository must share.
func testCartRepository(t *testing.T, repo CartRepository) {
	t.Run("find missing cart", func(t *testing.T) {
		cart, err := repo.FindByUserID(context.Background(), gofakeit.UUID())
		assert.ErrorIs(t, err, domain.ErrCartNotFound)
		assert.Nil(t, cart)
	})

	t.Run("insert then find", func(t *testing.T) {
		ctx := context.Background()
		cart := randomCart(gofakeit.UUID())

		saved, err := repo.Save(ctx, cart)
		require.NoError(t, err)
		assert.Equal(t, int64(1), saved.Version)
		assert.False(t, saved.CreatedAt.IsZero())
		assert.Equal(t, int64(0), cart.Version, "input cart must not be mutated")

		got, err := repo.FindByUserID(ctx, cart.UserID)
		require.NoError(t, err)
		assertSameCart(t, saved, got)
	})

	t.Run("update bumps version", func(t *testing.T) {
		ctx := context.Background()
		saved, err := repo.Save(ctx, randomCart(gofakeit.UUID()))
		require.NoError(t, err)

		saved.Items[0].Quantity++
		saved.Recalculate()
		updated, err := repo.Save(ctx, saved)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)

		got, err := repo.FindByUserID(ctx, saved.UserID)
		require.NoError(t, err)
		assertSameCart(t, updated, got)
	})

	t.Run("empty cart survives", func(t *testing.T) {
		ctx := context.Background()
		saved, err := repo.Save(ctx, randomCart(gofakeit.UUID()))
		require.NoError(t, err)

		saved.Clear()
		_, err = repo.Save(ctx, saved)
		require.NoError(t, err)

		got, err := repo.FindByUserID(ctx, saved.UserID)
		require.NoError(t, err)
		assert.Empty(t, got.Items)
		assert.True(t, got.TotalAmount.IsZero())
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		ctx := context.Background()
		first, err := repo.Save(ctx, randomCart(gofakeit.UUID()))
		require.NoError(t, err)

		stale := first.Clone()
		_, err = repo.Save(ctx, first)
		require.NoError(t, err)

		_, err = repo.Save(ctx, stale)
		assert.ErrorIs(t, err, domain.ErrCartConflict)
	})

	t.Run("second insert conflicts", func(t *testing.T) {
		ctx := context.Background()
		userID := gofakeit.UUID()
		_, err := repo.Save(ctx, randomCart(userID))
		require.NoError(t, err)

		_, err = repo.Save(ctx, randomCart(userID))
		assert.ErrorIs(t, err, domain.ErrCartConflict)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(context.Background()))
	})
}
