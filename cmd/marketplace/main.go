package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fjod/go_cart/marketplace/internal/cart"
	"github.com/fjod/go_cart/marketplace/internal/catalog"
	"github.com/fjod/go_cart/marketplace/internal/config"
	h "github.com/fjod/go_cart/marketplace/internal/http"
	"github.com/fjod/go_cart/marketplace/internal/inventory"
	"github.com/fjod/go_cart/marketplace/internal/metrics"
	"github.com/fjod/go_cart/marketplace/internal/publisher"
	"github.com/fjod/go_cart/marketplace/internal/repository"
	"github.com/fjod/go_cart/marketplace/internal/service"
	"github.com/fjod/go_cart/marketplace/pkg/circuitbreaker"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogPretty)
	log.Info().Msg("marketplace starting...")

	m := metrics.New()

	// Order database
	creds := &repository.Credentials{
		Host:              cfg.DB.Host,
		Port:              cfg.DB.Port,
		User:              cfg.DB.User,
		Password:          cfg.DB.Password,
		DBName:            cfg.DB.Name,
		MigrationsDirPath: cfg.DB.MigrationsPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	ledgerCfg := inventory.LedgerConfig{
		MaxAttempts:  cfg.Stock.MaxAttempts,
		RetryBackoff: cfg.Stock.RetryBackoff,
	}
	ledger := inventory.NewLedger(inventory.NewPostgresStore(repo.DB()), ledgerCfg, m)

	// Catalog
	if err := os.MkdirAll(filepath.Dir(cfg.CatalogDBPath), 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create catalog directory")
	}
	products, err := catalog.New(cfg.CatalogDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open catalog")
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run catalog migrations")
	}

	// Cart storage
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()
	cartRepo := cart.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to create cart indexes")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, cart reads will go to mongodb")
	}
	cancel()
	cartReader := cart.NewReader(cartRepo, cart.NewRedisCache(redisClient))

	// Notifications
	notifier := publisher.NewNotifier(
		publisher.NewKafkaWriter(cfg.NotifyTopic, cfg.KafkaBrokers...),
		circuitbreaker.New(circuitbreaker.DefaultSettings("notifications")),
		m,
		cfg.RequestTimeout,
	)
	defer notifier.Close()

	// Services
	notify := service.NewNotifyHandler(notifier, cfg.RequestTimeout)
	assembler := service.NewAssembler(service.FlatRateShipping{
		FreeThreshold: cfg.Shipping.FreeShippingThreshold,
		FlatFee:       cfg.Shipping.FlatFee,
	}, cfg.Currency)

	checkoutService := service.NewCheckoutService(
		repo,
		service.NewCartHandler(cartReader, cfg.RequestTimeout),
		service.NewCatalogHandler(products, cfg.RequestTimeout),
		ledger,
		notify,
		assembler,
		m,
	)
	statusService := service.NewStatusService(repo, service.NewCompensator(ledgerCfg, m), notify, m)
	queryService := service.NewOrderQueryService(repo)

	router := h.NewRouter(h.RouterConfig{
		Checkout:       h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout),
		Orders:         h.NewOrdersHandler(statusService, queryService, cfg.RequestTimeout),
		Cart:           h.NewCartHandler(cartReader, products, cfg.RequestTimeout),
		Metrics:        m,
		Health:         repo.Ping,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("marketplace listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}
