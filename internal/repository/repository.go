package repository

import (
	"context"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

// CartRepository defines the cart persistence operations.
// Consumers define this interface, not the storage implementations.
//
// Save is an upsert guarded by the cart version: a cart read at version N is
// stored only if the stored version is still N, a new cart (version 0) only if
// none exists. Otherwise domain.ErrCartConflict is returned. The returned cart
// carries the new version and timestamps.
type CartRepository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error)
	Ping(ctx context.Context) error
}
