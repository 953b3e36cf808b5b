package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/products"
	paymentwebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/payment"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/eventbus"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured, idempotency keys disabled")
	}

	publisher, err := eventbus.New(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logg.Error(context.Background(), "error closing event bus", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	notificationRepo := notifications.NewRepository(conn)
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Store:           notificationRepo,
		Publisher:       publisher,
		Topic:           cfg.Notifications.Topic,
		QueueSize:       cfg.Notifications.QueueSize,
		Workers:         cfg.Notifications.Workers,
		DeliveryTimeout: cfg.Notifications.DeliveryTimeout,
		Metrics:         metrics.NewNotificationMetrics(registry),
		Logger:          logg,
	})
	if err != nil {
		return err
	}

	ordersRepo := orders.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)
	productRepo := products.NewRepository(conn)

	cartSvc, err := cart.NewService(cart.NewRepository(conn))
	if err != nil {
		return err
	}
	ordersSvc, err := orders.NewService(ordersRepo, cartSvc, logg)
	if err != nil {
		return err
	}
	paymentsSvc, err := payments.NewService(paymentsRepo, ordersRepo, logg)
	if err != nil {
		return err
	}
	notificationsSvc, err := notifications.NewService(notificationRepo)
	if err != nil {
		return err
	}

	adjuster, err := inventory.NewAdjuster(productRepo, dispatcher, cfg.Inventory.DefaultRestockThreshold, metrics.NewInventoryMetrics(registry), logg)
	if err != nil {
		return err
	}
	if cfg.Webhook.PaymentCallbackToken == "" {
		logg.Warn(ctx, "payment callback token not configured, webhooks will be rejected")
	}
	processor, err := paymentwebhook.NewProcessor(paymentwebhook.ProcessorParams{
		Authenticator:     paymentwebhook.NewAuthenticator(cfg.Webhook.PaymentCallbackToken),
		Payments:          paymentsRepo,
		Orders:            ordersRepo,
		TransactionRunner: dbClient,
		Inventory:         adjuster,
		Sink:              dispatcher,
		Metrics:           metrics.NewWebhookMetrics(registry),
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, ordersSvc, paymentsSvc, cartSvc, notificationsSvc, processor),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "http server shutdown failed", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logg.WarnErr(logCtx, "notification queue not fully drained", err)
	}
	logg.Info(logCtx, "api server stopped")
	return nil
}
