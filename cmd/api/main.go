package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"storefront/internal/cache"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/messaging"
	"storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/service"
	"storefront/internal/webhook"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	db, err := client.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Error("init database failed", "err", err)
		os.Exit(1)
	}

	rdb, err := client.InitRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Error("init redis failed", "err", err)
		os.Exit(1)
	}

	var productCache cache.ProductCache = cache.NoopCache{}
	if rdb != nil {
		productCache = cache.NewRedisCache(rdb)
	}

	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	productRepo := repository.NewProductRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	stripeClient := client.NewStripeClient(&cfg.Stripe)
	verifier := webhook.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)

	catalogService := service.NewCatalogService(productRepo, productCache, log)
	couponService := service.NewCouponService(profileRepo, couponRepo, cfg.Coupon.Rate(), cfg.Coupon.SingleUse)

	svc := &server.Services{
		Catalog:  catalogService,
		Profile:  service.NewProfileService(profileRepo),
		Coupon:   couponService,
		Checkout: service.NewCheckoutService(stripeClient, couponService, productRepo, cfg.BaseURL, cfg.Stripe.Currency, log),
		Fulfillment: service.NewFulfillmentService(
			db, verifier, stripeClient, publisher,
			orderRepo,
			productRepo,
			couponRepo,
			commissionRepo,
			profileRepo,
			webhookEventRepo,
			cfg.Coupon.SingleUse,
			cfg.Coupon.Rate(),
			log,
		),
		CatalogSync: service.NewCatalogSyncService(stripeClient, productRepo, catalogService, cfg.Stripe.Currency, log),
		Order:       service.NewOrderService(orderRepo, commissionRepo),
		Roles:       roleRepo,
	}

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(cfg, svc, log)

	log.Info("starting HTTP server", "addr", serverAddr, "env", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}
	if err := publisher.Close(); err != nil {
		log.Error("close publisher failed", "err", err)
	}
	if rdb != nil {
		rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
