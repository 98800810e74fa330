package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/shopspring/decimal"
)

// ValidationError rejects a request body before it reaches a service.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// decodeJSON reads a single JSON object of at most maxBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var (
			typeErr  *json.UnmarshalTypeError
			syntax   *json.SyntaxError
			tooLarge *http.MaxBytesError
		)
		switch {
		case errors.As(err, &typeErr):
			return invalid(typeErr.Field, "has the wrong type")
		case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
			return invalid("", "malformed JSON body")
		case errors.Is(err, io.EOF):
			return invalid("", "request body is empty")
		case errors.As(err, &tooLarge):
			return invalid("", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return invalid(strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`), "is not allowed")
		default:
			return invalid("", "invalid JSON body")
		}
	}
	if dec.More() {
		return invalid("", "request body must contain a single JSON object")
	}
	return nil
}

// presentString accepts any string value, including "".
func presentString(field string, v *string) (string, error) {
	if v == nil {
		return "", invalid(field, "is required")
	}
	return *v, nil
}

func requiredString(field string, v *string) (string, error) {
	if v == nil {
		return "", invalid(field, "is required")
	}
	if strings.TrimSpace(*v) == "" {
		return "", invalid(field, "must not be empty")
	}
	return *v, nil
}

// wholeNumber accepts a JSON number that is an integer >= min.
func wholeNumber(field string, v *float64, min int) (int, error) {
	if v == nil {
		return 0, invalid(field, "is required")
	}
	if *v != math.Trunc(*v) || *v > math.MaxInt32 {
		return 0, invalid(field, "must be an integer")
	}
	if *v < float64(min) {
		return 0, invalid(field, fmt.Sprintf("must not be less than %d", min))
	}
	return int(*v), nil
}

func nonNegativeDecimal(field string, v *decimal.Decimal) error {
	if v.IsNegative() {
		return invalid(field, "must not be less than 0")
	}
	return nil
}

type AddToCartRequest struct {
	UserID    *string  `json:"userId"`
	ProductID *string  `json:"productId"`
	Quantity  *float64 `json:"quantity"`
}

type addToCartInput struct {
	userID    string
	productID string
	quantity  int
}

func (r AddToCartRequest) validate() (addToCartInput, error) {
	var (
		in  addToCartInput
		err error
	)
	if in.userID, err = requiredString("userId", r.UserID); err != nil {
		return in, err
	}
	if in.productID, err = requiredString("productId", r.ProductID); err != nil {
		return in, err
	}
	if in.quantity, err = wholeNumber("quantity", r.Quantity, 1); err != nil {
		return in, err
	}
	return in, nil
}

type UpdateCartItemRequest struct {
	ProductID *string  `json:"productId"`
	Quantity  *float64 `json:"quantity"`
}

func (r UpdateCartItemRequest) validate() (productID string, quantity int, err error) {
	if productID, err = requiredString("productId", r.ProductID); err != nil {
		return "", 0, err
	}
	if quantity, err = wholeNumber("quantity", r.Quantity, 0); err != nil {
		return "", 0, err
	}
	return productID, quantity, nil
}

type CreateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *float64         `json:"stock"`
	ImageURL    *string          `json:"imageUrl"`
	IsActive    *bool            `json:"isActive"`
}

func (r CreateProductRequest) validate() (*domain.Product, error) {
	name, err := presentString("name", r.Name)
	if err != nil {
		return nil, err
	}
	description, err := presentString("description", r.Description)
	if err != nil {
		return nil, err
	}
	if r.Price == nil {
		return nil, invalid("price", "is required")
	}
	if err := nonNegativeDecimal("price", r.Price); err != nil {
		return nil, err
	}
	stock, err := wholeNumber("stock", r.Stock, 0)
	if err != nil {
		return nil, err
	}

	p := &domain.Product{
		Name:        name,
		Description: description,
		Price:       *r.Price,
		Stock:       stock,
		IsActive:    true,
	}
	if r.ImageURL != nil {
		p.ImageURL = *r.ImageURL
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return p, nil
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *float64         `json:"stock"`
	ImageURL    *string          `json:"imageUrl"`
	IsActive    *bool            `json:"isActive"`
}

func (r UpdateProductRequest) validate() (domain.ProductUpdate, error) {
	upd := domain.ProductUpdate{
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		IsActive:    r.IsActive,
	}
	if r.Price != nil {
		if err := nonNegativeDecimal("price", r.Price); err != nil {
			return upd, err
		}
		upd.Price = r.Price
	}
	if r.Stock != nil {
		stock, err := wholeNumber("stock", r.Stock, 0)
		if err != nil {
			return upd, err
		}
		upd.Stock = &stock
	}
	return upd, nil
}
