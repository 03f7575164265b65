package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/recicar/marketplace-backend/api/routes"
	"github.com/recicar/marketplace-backend/internal/cart"
	"github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/internal/categories"
	"github.com/recicar/marketplace-backend/internal/checkout"
	"github.com/recicar/marketplace-backend/internal/notifications"
	"github.com/recicar/marketplace-backend/internal/orders"
	"github.com/recicar/marketplace-backend/internal/payments"
	"github.com/recicar/marketplace-backend/internal/pricing"
	"github.com/recicar/marketplace-backend/internal/search"
	"github.com/recicar/marketplace-backend/internal/users"
	"github.com/recicar/marketplace-backend/internal/vehicles"
	"github.com/recicar/marketplace-backend/internal/vendors"
	"github.com/recicar/marketplace-backend/internal/wishlist"
	"github.com/recicar/marketplace-backend/pkg/config"
	"github.com/recicar/marketplace-backend/pkg/db"
	"github.com/recicar/marketplace-backend/pkg/logger"
	"github.com/recicar/marketplace-backend/pkg/metrics"
	"github.com/recicar/marketplace-backend/pkg/migrate"
	"github.com/recicar/marketplace-backend/pkg/redis"
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

	rates, err := pricing.ParseRates(cfg.Rates)
	if err != nil {
		logg.Error(context.Background(), "failed to parse rates", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	sender, err := notifications.NewLogSender(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification sender", err)
		os.Exit(1)
	}
	dispatcher, err := notifications.NewDispatcher(sender, logg, cfg.Notifications.QueueSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	dispatcher.Start()
	defer dispatcher.Stop()

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	vendorsRepo := vendors.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	categoriesRepo := categories.NewRepository(gormDB)
	searchRepo := search.NewRepository(gormDB)
	vehiclesRepo := vehicles.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	paymentsRepo := payments.NewRepository(gormDB)
	wishlistRepo := wishlist.NewRepository(gormDB)

	usersService, err := users.NewService(usersRepo, vendorsRepo, dispatcher, redisClient, cfg.JWT, cfg.Password, logg)
	requireService(logg, "users", err)
	vendorsService, err := vendors.NewService(vendorsRepo, usersRepo, dispatcher, dbClient, cfg.Password, logg)
	requireService(logg, "vendors", err)
	catalogService, err := catalog.NewService(catalogRepo, vendorsRepo, categoriesRepo)
	requireService(logg, "catalog", err)
	categoriesService, err := categories.NewService(categoriesRepo)
	requireService(logg, "categories", err)
	searchService, err := search.NewService(searchRepo, logg)
	requireService(logg, "search", err)
	vehiclesService, err := vehicles.NewService(vehiclesRepo, logg)
	requireService(logg, "vehicles", err)
	cartService, err := cart.NewService(cartRepo, catalogRepo, rates)
	requireService(logg, "cart", err)
	ordersService, err := orders.NewService(ordersRepo, catalogRepo, paymentsRepo, dbClient, logg)
	requireService(logg, "orders", err)
	checkoutService, err := checkout.NewService(
		cartRepo,
		catalogRepo,
		ordersRepo,
		paymentsRepo,
		payments.NewSimulatedProcessor(logg),
		usersRepo,
		dispatcher,
		dbClient,
		rates,
		logg,
	)
	requireService(logg, "checkout", err)
	wishlistService, err := wishlist.NewService(wishlistRepo, catalogRepo, logg)
	requireService(logg, "wishlist", err)

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
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, promRegistry, httpMetrics, routes.Services{
			Users:      usersService,
			Vendors:    vendorsService,
			Catalog:    catalogService,
			Search:     searchService,
			Categories: categoriesService,
			Vehicles:   vehiclesService,
			Cart:       cartService,
			Checkout:   checkoutService,
			Orders:     ordersService,
			Wishlist:   wishlistService,
		}),
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
