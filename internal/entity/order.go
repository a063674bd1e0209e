package entity

import "time"

const OrderStatusPending = "pending"

// Bounds on order input. They keep every line total and order total well
// inside int64.
const (
	MaxOrderItems = 100
	MaxItemQty    = 1000
	MaxPriceCents = 100_000_000
)

type Order struct {
	ID              int64     `json:"id"`
	UserID          *int64    `json:"user_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email"`
	CustomerAddress string    `json:"customer_address"`
	TotalCents      int64     `json:"total_cents"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// OrderItem is a line-item snapshot. PriceCents and Title are copied from
// the catalog when the order is created and never rewritten afterwards.
type OrderItem struct {
	ID         int64  `json:"id"`
	OrderID    int64  `json:"order_id"`
	ProductID  *int64 `json:"product_id"`
	PriceCents int64  `json:"price_cents"`
	Qty        int    `json:"qty"`
	Title      string `json:"title"`
}

// OrderDetails is an order header together with its items.
type OrderDetails struct {
	Order *Order      `json:"order"`
	Items []OrderItem `json:"items"`
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// OrderItemRequest is one submitted cart line. PriceCents and Title are
// only used when ProductID no longer resolves.
type OrderItemRequest struct {
	ProductID  int64  `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents,omitempty"`
	Title      string `json:"title,omitempty"`
}

type OrderRequest struct {
	Items      []OrderItemRequest `json:"items"`
	Customer   *Customer          `json:"customer"`
	TotalCents int64              `json:"total_cents"`
}

/*
SQLite Schema:
CREATE TABLE orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id),
	customer_name TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	customer_address TEXT NOT NULL DEFAULT '',
	total_cents INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL
);

CREATE TABLE order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id INTEGER REFERENCES products(id) ON DELETE SET NULL,
	price_cents INTEGER NOT NULL,
	qty INTEGER NOT NULL,
	title TEXT NOT NULL
);
*/
