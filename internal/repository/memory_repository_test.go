package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	testCartRepository(t, NewMemoryRepository())
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	saved, err := repo.Save(ctx, randomCart("u1"))
	require.NoError(t, err)
	saved.Items[0].Quantity = 1000

	got, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, 1000, got.Items[0].Quantity)
}

func TestMemoryRepository_ConcurrentWritersOneWins(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base, err := repo.Save(ctx, randomCart("u1"))
	require.NoError(t, err)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Save(ctx, base.Clone())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, domain.ErrCartConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)
}
