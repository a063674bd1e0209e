package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/internal/entity"
)

// SearchLimit caps the rows returned by SearchProducts.
const SearchLimit = 50

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db}
}

const productColumns = `id, title, handle, description, category, price_cents, sku, stock, image_url, created_at`

func scanProduct(row scanner) (*entity.Product, error) {
	p := &entity.Product{}
	err := row.Scan(&p.ID, &p.Title, &p.Handle, &p.Description, &p.Category, &p.PriceCents, &p.SKU, &p.Stock, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*entity.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) GetProductByID(ctx context.Context, id int64) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// GetProducts returns every product, newest first.
func (r *ProductRepository) GetProducts(ctx context.Context) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`
	return r.queryProducts(ctx, query)
}

// SearchProducts matches q case-insensitively anywhere in title, description
// or category. At most SearchLimit rows are returned.
func (r *ProductRepository) SearchProducts(ctx context.Context, q string) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR LOWER(category) LIKE ? ESCAPE '!'
		ORDER BY created_at DESC, id DESC
		LIMIT ?`
	like := containsPattern(q)
	return r.queryProducts(ctx, query, like, like, like, SearchLimit)
}

func (r *ProductRepository) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO products (title, handle, description, category, price_cents, sku, stock, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, product.Title, product.Handle, product.Description, product.Category,
		product.PriceCents, product.SKU, product.Stock, product.ImageURL, product.CreatedAt)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	product.ID = id
	return product, nil
}

// UpdateProduct applies a partial update; nil patch fields keep the stored
// value. Returns ErrNotFound when no product has the id.
func (r *ProductRepository) UpdateProduct(ctx context.Context, id int64, patch *entity.ProductPatch) (*entity.Product, error) {
	if _, err := r.GetProductByID(ctx, id); err != nil {
		return nil, err
	}

	query := `UPDATE products SET
		title = COALESCE(?, title),
		handle = COALESCE(?, handle),
		description = COALESCE(?, description),
		category = COALESCE(?, category),
		price_cents = COALESCE(?, price_cents),
		sku = COALESCE(?, sku),
		stock = COALESCE(?, stock),
		image_url = COALESCE(?, image_url)
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, patch.Title, patch.Handle, patch.Description, patch.Category,
		patch.PriceCents, patch.SKU, patch.Stock, patch.ImageURL, id)
	if err != nil {
		return nil, err
	}

	return r.GetProductByID(ctx, id)
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}
