package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type CartService interface {
	AddToCart(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpdateCartItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	RemoveFromCart(ctx context.Context, userID, productID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	service     CartService
	timeout     time.Duration
	maxBodySize int64
	log         *logrus.Entry
}

func NewCartHandler(service CartService, timeout time.Duration, maxBodySize int64, log *logrus.Entry) *CartHandler {
	return &CartHandler{
		service:     service,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		log:         log,
	}
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	in, err := req.validate()
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.service.AddToCart(ctx, in.userID, in.productID, in.quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.service.GetCart(ctx, chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartItemRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	productID, quantity, err := req.validate()
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.service.UpdateCartItem(ctx, chi.URLParam(r, "userId"), productID, quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, err := h.service.RemoveFromCart(ctx, chi.URLParam(r, "userId"), chi.URLParam(r, "productId"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.ClearCart(ctx, chi.URLParam(r, "userId")); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
