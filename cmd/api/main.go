package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/campuscycles/pos-backend/api/routes"
	"github.com/campuscycles/pos-backend/internal/audit"
	"github.com/campuscycles/pos-backend/internal/inventory"
	"github.com/campuscycles/pos-backend/internal/orderrequests"
	"github.com/campuscycles/pos-backend/internal/orders"
	"github.com/campuscycles/pos-backend/internal/transactions"
	"github.com/campuscycles/pos-backend/internal/users"
	"github.com/campuscycles/pos-backend/pkg/config"
	"github.com/campuscycles/pos-backend/pkg/db"
	"github.com/campuscycles/pos-backend/pkg/logger"
	"github.com/campuscycles/pos-backend/pkg/metrics"
	"github.com/campuscycles/pos-backend/pkg/migrate"
	"github.com/campuscycles/pos-backend/pkg/redis"
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

	// Redis backs the idempotency layer; without it mutations still work,
	// they just lose replay protection.
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	purchasingMetrics := metrics.NewPurchasingMetrics(registry)

	gormDB := dbClient.DB()
	auditService, err := audit.NewService(audit.NewRepository(gormDB), users.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(gormDB), dbClient, auditService, purchasingMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	txnService, err := transactions.NewService(transactions.NewRepository(gormDB), dbClient, auditService, cfg.Pricing, purchasingMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create transactions service", err)
		os.Exit(1)
	}

	requestsService, err := orderrequests.NewService(orderrequests.NewRepository(gormDB), dbClient, auditService, inventoryService, txnService)
	if err != nil {
		logg.Error(context.Background(), "failed to create order requests service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(gormDB), dbClient, requestsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
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
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:           cfg,
			Logger:           logg,
			DBPinger:         dbClient,
			Redis:            redisClient,
			Registry:         registry,
			AuditService:     auditService,
			InventoryService: inventoryService,
			RequestsService:  requestsService,
			OrdersService:    ordersService,
			TxnService:       txnService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
