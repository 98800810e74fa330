package repository

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

// MemoryRepository implements CartRepository with in-memory storage.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart // userID -> cart
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		carts: make(map[string]*domain.Cart),
		now:   time.Now,
	}
}

func (m *MemoryRepository) FindByUserID(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cart, exists := m.carts[userID]
	if !exists {
		return nil, domain.ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (m *MemoryRepository) Save(_ context.Context, cart *domain.Cart) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.carts[cart.UserID]
	switch {
	case cart.Version == 0 && exists:
		return nil, domain.ErrCartConflict
	case cart.Version != 0 && (!exists || stored.Version != cart.Version):
		return nil, domain.ErrCartConflict
	}

	saved := cart.Clone()
	now := m.now().UTC()
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	saved.Version = cart.Version + 1

	m.carts[cart.UserID] = saved
	return saved.Clone(), nil
}

func (m *MemoryRepository) Ping(context.Context) error {
	return nil
}
