package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"storefront/migrations"
)

// Config is the process configuration, read from the environment and an
// optional .env file in the working directory.
type Config struct {
	Port      string        `env:"PORT,default=4000"`
	JWTSecret string        `env:"JWT_SECRET,default=dev-secret-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=168h"`

	DBDriver string `env:"DB_DRIVER,default=sqlite"`
	DBFile   string `env:"DB_FILE,default=data/dev.sqlite3"`
	DBDSN    string `env:"DB_DSN"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	ProductCacheTTL time.Duration `env:"PRODUCT_CACHE_TTL,default=10m"`

	KafkaBrokers    string `env:"KAFKA_BROKERS"`
	KafkaOrderTopic string `env:"KAFKA_ORDER_TOPIC,default=order-topic"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile   string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	FeedCollection    string `env:"FEED_COLLECTION,default=products"`

	AdminEmail    string `env:"ADMIN_EMAIL,default=admin@example.com"`
	AdminPassword string `env:"ADMIN_PASSWORD,default=admin123"`
	BcryptCost    int    `env:"BCRYPT_COST,default=10"`

	// Requests per second per client IP; 0 disables the limiter.
	RateLimit float64 `env:"RATE_LIMIT,default=0"`
	AssetsDir string  `env:"ASSETS_DIR,default=assets"`
}

// Load reads .env (if present) and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Dialect() migrations.Dialect {
	return migrations.Dialect(c.DBDriver)
}

func (c *Config) validate() error {
	switch c.Dialect() {
	case migrations.SQLite:
	case migrations.MySQL:
		if c.DBDSN == "" {
			return errors.New("config: DB_DSN is required when DB_DRIVER=mysql")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must not be empty")
	}
	if c.RateLimit < 0 {
		return errors.New("config: RATE_LIMIT must not be negative")
	}
	return nil
}
