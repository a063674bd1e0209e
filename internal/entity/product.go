package entity

import "time"

type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Handle      string    `json:"handle"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	SKU         string    `json:"sku"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductPatch carries a partial update. Nil fields keep their stored value.
type ProductPatch struct {
	Title       *string `json:"title"`
	Handle      *string `json:"handle"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	PriceCents  *int64  `json:"price_cents"`
	SKU         *string `json:"sku"`
	Stock       *int    `json:"stock"`
	ImageURL    *string `json:"image_url"`
}

/*
SQLite Schema:
CREATE TABLE products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	handle TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	price_cents INTEGER NOT NULL DEFAULT 0,
	sku TEXT NOT NULL DEFAULT '',
	stock INTEGER NOT NULL DEFAULT 0,
	image_url TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
*/
