package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	UserID      string          `json:"userId"`
	Items       []CartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Currency    string          `json:"currency,omitempty"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CartItem keeps the product name and price as they were when the item was
// first added; later catalog changes do not touch it.
type CartItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// NewCart returns an empty cart that has not been persisted yet.
func NewCart(userID, currency string) *Cart {
	return &Cart{
		UserID:      userID,
		Items:       []CartItem{},
		TotalAmount: decimal.Zero,
		Currency:    currency,
	}
}

// Subtotal is price times quantity for a single line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// FindItem returns the index of the item for productID, or -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// RemoveItem drops the item for productID and reports whether one was present.
func (c *Cart) RemoveItem(productID string) bool {
	idx := c.FindItem(productID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}

// Clear empties the cart. The cart itself keeps existing.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.TotalAmount = decimal.Zero
}

// Recalculate derives TotalAmount from the items. It is the only place the
// total is ever assigned from item data.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	c.TotalAmount = total
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}
