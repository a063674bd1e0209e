package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dialect selects the DDL flavour for the relational store.
type Dialect string

const (
	SQLite Dialect = "sqlite"
	MySQL  Dialect = "mysql"
)

var retryDelay = 1 * time.Second

var sqliteTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS products (
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
	);`,
	`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER REFERENCES users(id),
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_address TEXT NOT NULL DEFAULT '',
		total_cents INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id INTEGER REFERENCES products(id) ON DELETE SET NULL,
		price_cents INTEGER NOT NULL,
		qty INTEGER NOT NULL,
		title TEXT NOT NULL
	);`,
}

var mysqlTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		is_admin TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		handle VARCHAR(255) NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		category VARCHAR(255) NOT NULL DEFAULT '',
		price_cents BIGINT NOT NULL DEFAULT 0,
		sku VARCHAR(64) NOT NULL DEFAULT '',
		stock INT NOT NULL DEFAULT 0,
		image_url VARCHAR(1024) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NULL,
		customer_name VARCHAR(255) NOT NULL,
		customer_email VARCHAR(255) NOT NULL,
		customer_address VARCHAR(1024) NOT NULL DEFAULT '',
		total_cents BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at DATETIME(6) NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NULL,
		price_cents BIGINT NOT NULL,
		qty INT NOT NULL,
		title VARCHAR(255) NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL
	);`,
}

// Statements returns the table DDL for a dialect in dependency order.
func Statements(dialect Dialect) ([]string, error) {
	switch dialect {
	case SQLite:
		return sqliteTables, nil
	case MySQL:
		return mysqlTables, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// AutoMigrate creates the users, products, orders and order_items tables if
// they do not exist. Each statement is retried up to retries times.
func AutoMigrate(ctx context.Context, db *sql.DB, dialect Dialect, retries int) error {
	stmts, err := Statements(dialect)
	if err != nil {
		return err
	}

	for _, query := range stmts {
		_, err := db.ExecContext(ctx, query)
		if err != nil {
			// Retry creating the table
			for i := 0; i < retries; i++ {
				time.Sleep(retryDelay)
				_, err = db.ExecContext(ctx, query)
				if err == nil {
					break
				}
			}
		}
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
