package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mirabelleshop/cart-backend/api/routes"
	"github.com/mirabelleshop/cart-backend/internal/cartservice"
	"github.com/mirabelleshop/cart-backend/internal/catalog"
	"github.com/mirabelleshop/cart-backend/pkg/config"
	"github.com/mirabelleshop/cart-backend/pkg/db"
	"github.com/mirabelleshop/cart-backend/pkg/logger"
	"github.com/mirabelleshop/cart-backend/pkg/migrate"
	"github.com/mirabelleshop/cart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionTokens, err := cartservice.NewSessionTokens(cfg.CartToken)
	if err != nil {
		logg.Error(context.Background(), "failed to create session tokens", err)
		os.Exit(1)
	}

	cartService, err := cartservice.NewService(
		cartservice.NewRepository(dbClient.DB()),
		cartservice.NewPromotionRepo(dbClient.DB()),
		cartservice.NewShippingRepo(dbClient.DB()),
		catalog.NewRepository(dbClient.DB()),
		dbClient,
		redisClient,
		cfg.Cart,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionTokens, cartService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
