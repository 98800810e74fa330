package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/cache"
	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ProductCatalog is the part of the catalog the cart relies on for existence,
// price and stock.
type ProductCatalog interface {
	FindOne(ctx context.Context, productID string) (*domain.Product, error)
}

// CartService owns the cart invariants. It keeps no state between calls: each
// mutation reads the cart, changes it in memory and writes it back under the
// version read.
type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	catalog  ProductCatalog
	currency string
	log      *logrus.Entry
	sfg      singleflight.Group // Prevents cache stampede

	// loadTimeout bounds a shared GetCart load, which outlives any single caller.
	loadTimeout time.Duration
}

func NewCartService(
	repo repository.CartRepository,
	cartCache cache.CartCache,
	catalog ProductCatalog,
	currency string,
	log *logrus.Entry,
) *CartService {
	return &CartService{
		repo:        repo,
		cache:       cartCache,
		catalog:     catalog,
		currency:    currency,
		log:         log.WithField("component", "cart_service"),
		loadTimeout: 5 * time.Second,
	}
}

// AddToCart puts quantity units of productID in the user's cart, creating the
// cart on first use. Adding a product already in the cart increases its
// quantity; the merged quantity is not checked against stock again.
func (s *CartService) AddToCart(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.FindOne(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.HasStock(quantity) {
		return nil, domain.ErrInsufficientStock
	}

	cart, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		cart = domain.NewCart(userID, s.currency)
	} else if err != nil {
		return nil, err
	}

	if idx := cart.FindItem(productID); idx >= 0 {
		cart.Items[idx].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:   productID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    quantity,
		})
	}

	return s.save(ctx, cart)
}

// GetCart returns the stored cart. A user who never added anything has no
// cart and gets domain.ErrCartNotFound; a cleared cart is returned empty.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key.
	// The load is detached from the first caller so one disconnect does not fail
	// every caller waiting on it.
	ch := s.sfg.DoChan(userID, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.loadCart(loadCtx, userID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Cart).Clone(), nil
	}
}

func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	log := s.log.WithContext(ctx).WithField("user_id", userID)

	cart, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.WithError(err).Warn("cache get failed")
	}

	cart, err = s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// refused by the cache when a write landed after the read above
	if err := s.cache.Set(ctx, cart); err != nil {
		log.WithError(err).Warn("cache set failed")
	}
	return cart, nil
}

// UpdateCartItem sets the absolute quantity of an item already in the cart.
// Zero removes the item; any other value is checked against current stock.
func (s *CartService) UpdateCartItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, domain.ErrItemNotFound
	}

	if quantity == 0 {
		cart.RemoveItem(productID)
	} else {
		product, err := s.catalog.FindOne(ctx, productID)
		if err != nil {
			return nil, err
		}
		if !product.HasStock(quantity) {
			return nil, domain.ErrInsufficientStock
		}
		cart.Items[idx].Quantity = quantity
	}

	return s.save(ctx, cart)
}

// RemoveFromCart drops productID from the cart. Removing a product that is
// not in the cart is not an error.
func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !cart.RemoveItem(productID) {
		s.log.WithContext(ctx).WithFields(logrus.Fields{
			"user_id":    userID,
			"product_id": productID,
		}).Debug("product not in cart")
	}

	return s.save(ctx, cart)
}

// ClearCart empties the cart but keeps it stored.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}

	cart.Clear()
	_, err = s.save(ctx, cart)
	return err
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	cart.Recalculate()

	saved, err := s.repo.Save(ctx, cart)
	if err != nil {
		s.log.WithContext(ctx).WithField("user_id", cart.UserID).WithError(err).Warn("cart save failed")
		return nil, err
	}

	s.invalidateCache(ctx, saved.UserID, saved.Version)
	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"user_id": saved.UserID,
		"items":   len(saved.Items),
		"total":   saved.TotalAmount.String(),
		"version": saved.Version,
	}).Debug("cart saved")
	return saved, nil
}

func (s *CartService) invalidateCache(ctx context.Context, userID string, version int64) {
	// the write already happened; a cancelled request must not leave a stale entry
	ctx = context.WithoutCancel(ctx)
	// readers arriving from now on must not join a load that began before the write
	s.sfg.Forget(userID)
	if err := s.cache.Invalidate(ctx, userID, version); err != nil {
		s.log.WithContext(ctx).WithField("user_id", userID).WithError(err).Warn("cache invalidate failed")
	}
}
