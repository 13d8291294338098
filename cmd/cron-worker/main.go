package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hatidph/hatid-backend/internal/cron"
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

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)

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

	dispatchSvc, err := dispatch.NewService(dispatch.NewRepository(gormDB), ordersRepo, dbClient, outboxSvc, cfg.Dispatch, dispatchMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	offerExpiryJob, err := cron.NewOfferExpiryJob(cron.OfferExpiryJobParams{Logger: logg, Dispatch: dispatchSvc})
	if err != nil {
		logg.Error(context.Background(), "failed to create offer expiry job", err)
		os.Exit(1)
	}
	dispatchSweepJob, err := cron.NewDispatchSweepJob(cron.DispatchSweepJobParams{Logger: logg, Dispatch: dispatchSvc})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch sweep job", err)
		os.Exit(1)
	}
	slaSweepJob, err := cron.NewSlaSweepJob(cron.SlaSweepJobParams{Logger: logg, SLA: slaSvc})
	if err != nil {
		logg.Error(context.Background(), "failed to create sla sweep job", err)
		os.Exit(1)
	}
	pendingOrderJob, err := cron.NewPendingOrderJob(cron.PendingOrderJobParams{Logger: logg, Orders: ordersRepo, Canceller: refundsSvc})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending order job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(offerExpiryJob, dispatchSweepJob, slaSweepJob, pendingOrderJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
