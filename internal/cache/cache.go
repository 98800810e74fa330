package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

// CartCache is a read-through copy of stored carts keyed by user. Only
// existing carts are cached; a missing cart always goes to the store.
//
// Entries are ordered by cart version. Set never replaces a newer entry, and
// Invalidate leaves a marker for the version just written so that a read
// which started before the write cannot put the older cart back.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, cart *domain.Cart) error
	Invalidate(ctx context.Context, userID string, version int64) error
}

// ErrCacheMiss is returned by Get when no entry exists for the user.
var ErrCacheMiss = errors.New("cart not cached")

// Noop never stores anything; every Get is a miss. Used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Cart, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, *domain.Cart) error           { return nil }
func (Noop) Invalidate(context.Context, string, int64) error   { return nil }
