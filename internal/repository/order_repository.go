package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/internal/entity"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db}
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, id int64) (*entity.OrderDetails, error) {
	orderQuery := `SELECT id, user_id, customer_name, customer_email, customer_address, total_cents, status, created_at FROM orders WHERE id = ?`
	itemQuery := `SELECT id, order_id, product_id, price_cents, qty, title FROM order_items WHERE order_id = ? ORDER BY id`

	order := &entity.Order{}
	var userID sql.NullInt64
	err := r.db.QueryRowContext(ctx, orderQuery, id).Scan(&order.ID, &userID, &order.CustomerName, &order.CustomerEmail,
		&order.CustomerAddress, &order.TotalCents, &order.Status, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if userID.Valid {
		order.UserID = &userID.Int64
	}

	rows, err := r.db.QueryContext(ctx, itemQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []entity.OrderItem{}
	for rows.Next() {
		item := entity.OrderItem{}
		var productID sql.NullInt64
		err := rows.Scan(&item.ID, &item.OrderID, &productID, &item.PriceCents, &item.Qty, &item.Title)
		if err != nil {
			return nil, err
		}
		if productID.Valid {
			item.ProductID = &productID.Int64
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &entity.OrderDetails{Order: order, Items: items}, nil
}

// CreateOrder inserts the order header and its item snapshots in a single
// transaction and returns the new order id.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *entity.Order, items []entity.OrderItem) (int64, error) {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = entity.OrderStatusPending
	}

	// Start a transaction
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	// Insert order
	orderQuery := `INSERT INTO orders (user_id, customer_name, customer_email, customer_address, total_cents, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, orderQuery, order.UserID, order.CustomerName, order.CustomerEmail, order.CustomerAddress,
		order.TotalCents, order.Status, order.CreatedAt)
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	if len(items) > 0 {
		// Insert order items with batch
		itemQuery := `INSERT INTO order_items (order_id, product_id, price_cents, qty, title) VALUES `

		var values []interface{}
		for _, item := range items {
			itemQuery += "(?, ?, ?, ?, ?),"
			values = append(values, orderID, item.ProductID, item.PriceCents, item.Qty, item.Title)
		}

		// Remove the trailing comma
		itemQuery = itemQuery[:len(itemQuery)-1]

		_, err = tx.ExecContext(ctx, itemQuery, values...)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	order.ID = orderID
	return orderID, nil
}
