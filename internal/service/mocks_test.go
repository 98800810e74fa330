package service

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/cart-api/internal/cache"
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/shopspring/decimal"
)

type mockCatalog struct {
	m        sync.RWMutex
	products map[string]*domain.Product
	err      error
	calls    int
}

func newMockCatalog(products ...*domain.Product) *mockCatalog {
	c := &mockCatalog{products: make(map[string]*domain.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (m *mockCatalog) FindOne(_ context.Context, id string) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalog) setPrice(id, price string) {
	m.m.Lock()
	defer m.m.Unlock()
	m.products[id].Price = decimal.RequireFromString(price)
}

func (m *mockCatalog) setStock(id string, stock int) {
	m.m.Lock()
	defer m.m.Unlock()
	m.products[id].Stock = stock
}

type mockCache struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
	gets  int

	invalidations []int64 // versions passed to Invalidate
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart.Clone(), nil
}

func (m *mockCache) Set(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.carts[cart.UserID] = cart.Clone()
	return nil
}

func (m *mockCache) Invalidate(_ context.Context, userID string, version int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.invalidations = append(m.invalidations, version)
	delete(m.carts, userID)
	return m.err
}

func (m *mockCache) has(userID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[userID]
	return ok
}

// failingRepository wraps a repository and fails chosen calls.
type failingRepository struct {
	findErr error
	saveErr error
	saves   int
	inner   interface {
		FindByUserID(ctx context.Context, userID string) (*domain.Cart, error)
		Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error)
	}
}

func (f *failingRepository) FindByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.inner.FindByUserID(ctx, userID)
}

func (f *failingRepository) Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	f.saves++
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return f.inner.Save(ctx, cart)
}

func (f *failingRepository) Ping(context.Context) error { return nil }
