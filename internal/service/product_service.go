package service

import (
	"context"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/sirupsen/logrus"
)

type ProductStore interface {
	List(ctx context.Context) ([]*domain.Product, error)
	FindOne(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error)
}

// ProductService manages the catalog the cart reads from. Changes here never
// touch existing cart items, which keep their snapshot price.
type ProductService struct {
	store ProductStore
	log   *logrus.Entry
}

func NewProductService(store ProductStore, log *logrus.Entry) *ProductService {
	return &ProductService{
		store: store,
		log:   log.WithField("component", "product_service"),
	}
}

func (s *ProductService) List(ctx context.Context) ([]*domain.Product, error) {
	return s.store.List(ctx)
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.store.FindOne(ctx, id)
}

func (s *ProductService) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	created, err := s.store.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"product_id": created.ID,
		"stock":      created.Stock,
	}).Info("product created")
	return created, nil
}

func (s *ProductService) Update(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error) {
	updated, err := s.store.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"product_id": id,
		"stock":      updated.Stock,
	}).Info("product updated")
	return updated, nil
}
