package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"storefront/internal/cache"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/service"
	"syscall"

	"github.com/joho/godotenv"
)

const usage = `usage: admin <command> [flags]

commands:
  sync                        push the catalog to the payment provider
  grant-role -user ID -role R grant a role to a user (default role: admin)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "sync":
		productRepo := repository.NewProductRepository(db)
		catalogService := service.NewCatalogService(productRepo, cache.NoopCache{}, log)
		syncService := service.NewCatalogSyncService(client.NewStripeClient(&cfg.Stripe), productRepo, catalogService, cfg.Stripe.Currency, log)

		syncCtx, cancel := context.WithTimeout(ctx, cfg.SyncTimeout)
		defer cancel()

		result, err := syncService.Sync(syncCtx)
		if err != nil {
			log.Error("catalog sync failed", "err", err)
			os.Exit(1)
		}
		fmt.Printf("synced=%d failed=%d\n", result.Synced, result.Failed)
		if result.Failed > 0 {
			os.Exit(1)
		}

	case "grant-role":
		fs := flag.NewFlagSet("grant-role", flag.ExitOnError)
		userID := fs.String("user", "", "auth user id")
		role := fs.String("role", model.RoleAdmin, "role name")
		fs.Parse(os.Args[2:])
		if *userID == "" || *role == "" {
			fs.Usage()
			os.Exit(2)
		}

		if err := repository.NewRoleRepository(db).Grant(ctx, *userID, *role); err != nil {
			log.Error("grant role failed", "user_id", *userID, "role", *role, "err", err)
			os.Exit(1)
		}
		fmt.Printf("granted %s to %s\n", *role, *userID)

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
