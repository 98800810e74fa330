package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// ErrCatalogUnavailable is returned while the breaker refuses calls.
var ErrCatalogUnavailable = errors.New("product catalog unavailable")

// Lookup is the single catalog call the cart depends on.
type Lookup interface {
	FindOne(ctx context.Context, productID string) (*domain.Product, error)
}

type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

var DefaultBreakerSettings = BreakerSettings{
	MaxFailures: 5,
	OpenTimeout: 30 * time.Second,
}

// BreakerLookup guards a Lookup with a circuit breaker. Product-not-found and
// caller cancellation are answers, not failures, and never trip it.
type BreakerLookup struct {
	next Lookup
	cb   *gobreaker.CircuitBreaker[*domain.Product]
}

func NewBreakerLookup(next Lookup, settings BreakerSettings, log *logrus.Entry) *BreakerLookup {
	cb := gobreaker.NewCircuitBreaker[*domain.Product](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrProductNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	return &BreakerLookup{next: next, cb: cb}
}

func (b *BreakerLookup) FindOne(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := b.cb.Execute(func() (*domain.Product, error) {
		return b.next.FindOne(ctx, productID)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return p, err
}

func (b *BreakerLookup) State() gobreaker.State {
	return b.cb.State()
}
