package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hatidph/hatid-backend/api/routes"
	"github.com/hatidph/hatid-backend/internal/dispatch"
	"github.com/hatidph/hatid-backend/internal/inventory"
	"github.com/hatidph/hatid-backend/internal/orders"
	"github.com/hatidph/hatid-backend/internal/payments"
	"github.com/hatidph/hatid-backend/internal/refunds"
	"github.com/hatidph/hatid-backend/internal/sla"
	"github.com/hatidph/hatid-backend/pkg/config"
	"github.com/hatidph/hatid-backend/pkg/db"
	"github.com/hatidph/hatid-backend/pkg/logger"
	"github.com/hatidph/hatid-backend/pkg/metrics"
	"github.com/hatidph/hatid-backend/pkg/migrate"
	"github.com/hatidph/hatid-backend/pkg/outbox"
	"github.com/hatidph/hatid-backend/pkg/redis"
	"github.com/hatidph/hatid-backend/pkg/square"
)

// Webhook event ids stay marked long enough to absorb gateway retry storms.
const webhookDedupTTL = 24 * time.Hour

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

	squareClient, err := square.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	dispatchMetrics := metrics.NewDispatchMetrics(registry)

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	ordersRepo := orders.NewRepository(gormDB)
	paymentsRepo := payments.NewRepository(gormDB)

	inventorySvc, err := inventory.NewService(inventory.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	slaSvc, err := sla.NewService(sla.NewRepository(gormDB), dbClient, outboxSvc, cfg.SLA, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sla service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, inventorySvc, slaSvc, cfg.SLA, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	refundGateway, err := payments.NewSquareGateway(squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund gateway", err)
		os.Exit(1)
	}

	refundsSvc, err := refunds.NewService(refunds.NewRepository(gormDB), ordersRepo, inventorySvc, paymentsRepo, refundGateway, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(paymentsRepo, ordersRepo, ordersSvc, refundsSvc, dbClient, cfg.SLA, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	dispatchSvc, err := dispatch.NewService(dispatch.NewRepository(gormDB), ordersRepo, dbClient, outboxSvc, cfg.Dispatch, dispatchMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	presence, err := dispatch.NewPresence(dispatch.NewRepository(gormDB), redisClient, 0, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rider presence recorder", err)
		os.Exit(1)
	}

	webhookGuard, err := payments.NewIdempotencyGuard(redisClient, webhookDedupTTL, "square-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Registry:     registry,
			Orders:       ordersSvc,
			Refunds:      refundsSvc,
			Dispatch:     dispatchSvc,
			Presence:     presence,
			Inventory:    inventorySvc,
			Payments:     paymentsSvc,
			Square:       squareClient,
			WebhookGuard: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
