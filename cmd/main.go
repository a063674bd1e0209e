package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"storefront/internal/api"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/feed"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/migrations"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Dialect(), cfg.DBFile, cfg.DBDSN, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migrations.AutoMigrate(ctx, db, cfg.Dialect(), 3); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Optional infrastructure: each is skipped when not configured.
	var productCache service.ProductCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer rdb.Close()
		productCache = cache.NewProductCache(rdb, cfg.ProductCacheTTL)
	}

	var publisher service.OrderPublisher
	if brokers := config.KafkaBrokerURLs(cfg.KafkaBrokers); len(brokers) > 0 {
		writer := config.NewKafkaWriter(brokers, cfg.KafkaOrderTopic)
		defer writer.Close()
		publisher = events.NewKafkaPublisher(writer)
	}

	var feedService *feed.Service
	if cfg.FirebaseProjectID != "" {
		source, err := feed.NewFirestoreSource(ctx, cfg.FirebaseProjectID, cfg.CredentialsFile, cfg.FeedCollection)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialise firestore feed")
		}
		defer source.Close()
		feedService = feed.NewService(source)
	}

	// Initialize services
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	userService := service.NewUserService(userRepo, tokens, cfg.BcryptCost)
	productService := service.NewProductService(productRepo, productCache)
	orderService := service.NewOrderService(repository.NewOrderRepository(db), productRepo, userRepo, tokens, publisher)

	if err := userService.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin user")
	}
	if err := productService.SeedProducts(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed products")
	}
	if n, err := productService.PreWarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to pre-warm product cache")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("product cache pre-warmed")
	}

	e, err := api.NewServer(api.Deps{
		Tokens:    tokens,
		Users:     userService,
		Products:  productService,
		Orders:    orderService,
		Feed:      feedService,
		RateLimit: cfg.RateLimit,
		AssetsDir: cfg.AssetsDir,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
