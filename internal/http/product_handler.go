package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error)
}

type ProductHandler struct {
	service     ProductService
	timeout     time.Duration
	maxBodySize int64
	log         *logrus.Entry
}

func NewProductHandler(service ProductService, timeout time.Duration, maxBodySize int64, log *logrus.Entry) *ProductHandler {
	return &ProductHandler{
		service:     service,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		log:         log,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.service.List(ctx)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.service.Get(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	p, err := req.validate()
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	created, err := h.service.Create(ctx, p)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	upd, err := req.validate()
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.service.Update(ctx, chi.URLParam(r, "productId"), upd)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
