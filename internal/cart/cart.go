package cart

import (
	"errors"
	"strconv"
	"time"

	"storefront/internal/entity"
)

const (
	// NoticeDuration is how long the "added" confirmation stays on screen.
	NoticeDuration = 2200 * time.Millisecond

	defaultName = "Produto"
)

var (
	ErrIndexOutOfRange = errors.New("cart: index out of range")
	ErrEmpty           = errors.New("cart: no items")
)

// Item is one cart line. ID is the product card id: a relational product id
// in decimal, or an opaque feed document id.
type Item struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Qty        int    `json:"qty"`
	Image      string `json:"image,omitempty"`
}

// Notice confirms an Add to the shopper.
type Notice struct {
	Name string
	Qty  int
}

type Totals struct {
	Count    int   `json:"count"`
	Subtotal int64 `json:"subtotal_cents"`
	Total    int64 `json:"total_cents"`
}

// Cart is the shopper's in-memory cart. It lives only as long as the page
// that owns it. The zero value is an empty cart.
type Cart struct {
	items []Item
}

func New() *Cart {
	return &Cart{}
}

// Add increments the quantity of an existing line with the same ID or
// appends item with quantity 1.
func (c *Cart) Add(item Item) Notice {
	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Qty = clampQty(c.items[i].Qty + 1)
			return Notice{Name: c.items[i].Name, Qty: c.items[i].Qty}
		}
	}
	if item.Name == "" {
		item.Name = defaultName
	}
	item.Qty = 1
	c.items = append(c.items, item)
	return Notice{Name: item.Name, Qty: 1}
}

// Increment raises the quantity of line i, never above entity.MaxItemQty.
func (c *Cart) Increment(i int) error {
	if !c.valid(i) {
		return ErrIndexOutOfRange
	}
	c.items[i].Qty = clampQty(c.items[i].Qty + 1)
	return nil
}

// Decrement lowers the quantity of line i, never below 1.
func (c *Cart) Decrement(i int) error {
	if !c.valid(i) {
		return ErrIndexOutOfRange
	}
	if c.items[i].Qty > 1 {
		c.items[i].Qty--
	}
	return nil
}

// Remove deletes line i; later lines shift down by one.
func (c *Cart) Remove(i int) error {
	if !c.valid(i) {
		return ErrIndexOutOfRange
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Entries returns a copy of the cart lines in insertion order.
func (c *Cart) Entries() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Totals() Totals {
	var t Totals
	for _, it := range c.items {
		t.Count += it.Qty
		t.Subtotal += it.PriceCents * int64(it.Qty)
	}
	t.Total = t.Subtotal
	return t
}

// OrderRequest builds the checkout payload. Lines whose ID is not a
// relational product id are sent with product_id 0 and carry their own
// price and title.
func (c *Cart) OrderRequest(customer entity.Customer) (*entity.OrderRequest, error) {
	if len(c.items) == 0 {
		return nil, ErrEmpty
	}

	req := &entity.OrderRequest{
		Customer:   &customer,
		TotalCents: c.Totals().Total,
	}
	for _, it := range c.items {
		productID, err := strconv.ParseInt(it.ID, 10, 64)
		if err != nil || productID < 0 {
			productID = 0
		}
		req.Items = append(req.Items, entity.OrderItemRequest{
			ProductID:  productID,
			Qty:        it.Qty,
			PriceCents: it.PriceCents,
			Title:      it.Name,
		})
	}
	return req, nil
}

func (c *Cart) valid(i int) bool {
	return i >= 0 && i < len(c.items)
}
