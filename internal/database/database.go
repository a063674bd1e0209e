package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"storefront/migrations"
)

// SQLiteDSN builds a modernc.org/sqlite DSN for a database file with
// foreign keys enforced.
func SQLiteDSN(file string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", file)
}

// Open connects to the relational store. For SQLite the parent directory of
// file is created and the pool is pinned to one connection, which keeps
// statements serialized against the single database file.
func Open(dialect migrations.Dialect, file, dsn string, attempts int) (*sql.DB, error) {
	var driver string
	switch dialect {
	case migrations.SQLite:
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		driver, dsn = "sqlite", SQLiteDSN(file)
	case migrations.MySQL:
		driver = "mysql"
	default:
		return nil, fmt.Errorf("unsupported db driver %q", dialect)
	}

	if attempts < 1 {
		attempts = 1
	}

	var db *sql.DB
	var err error
	for i := 0; i < attempts; i++ {
		db, err = sql.Open(driver, dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				if dialect == migrations.SQLite {
					db.SetMaxOpenConns(1)
				}
				log.Info().Str("driver", driver).Msg("connected to database")
				return db, nil
			}
			db.Close()
		}
		log.Warn().Err(err).Msgf("retry %d: failed to connect to %s database", i+1, driver)
		if i < attempts-1 {
			time.Sleep(3 * time.Second)
		}
	}
	return nil, fmt.Errorf("failed to connect to %s database after %d attempts: %w", driver, attempts, err)
}
