package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/entity"
)

// MaxLines is the most distinct lines a cart may hold.
const MaxLines = entity.MaxOrderItems

var ErrTooManyLines = fmt.Errorf("cart: more than %d lines", MaxLines)

// Encode serializes the cart lines so the page can hand them back on the
// next request.
func (c *Cart) Encode() (string, error) {
	items := c.items
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode rebuilds a cart from Encode output. A blank state is an empty cart.
// Quantities are clamped to 1..entity.MaxItemQty and prices to
// 0..entity.MaxPriceCents.
func Decode(state string) (*Cart, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return New(), nil
	}

	var items []Item
	if err := json.Unmarshal([]byte(state), &items); err != nil {
		return nil, fmt.Errorf("cart: decode state: %w", err)
	}
	if len(items) > MaxLines {
		return nil, ErrTooManyLines
	}

	c := New()
	for _, it := range items {
		if it.ID == "" {
			return nil, errors.New("cart: line without id")
		}
		if it.Name == "" {
			it.Name = defaultName
		}
		it.Qty = clampQty(it.Qty)
		if it.PriceCents < 0 {
			it.PriceCents = 0
		}
		if it.PriceCents > entity.MaxPriceCents {
			it.PriceCents = entity.MaxPriceCents
		}
		c.items = append(c.items, it)
	}
	return c, nil
}

func clampQty(qty int) int {
	if qty < 1 {
		return 1
	}
	if qty > entity.MaxItemQty {
		return entity.MaxItemQty
	}
	return qty
}
