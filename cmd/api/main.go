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

	"github.com/eventhub/eventhub-backend/api/routes"
	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/cancellation"
	"github.com/eventhub/eventhub-backend/internal/catalog"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/internal/offers"
	"github.com/eventhub/eventhub-backend/internal/payments"
	"github.com/eventhub/eventhub-backend/internal/pricing"
	"github.com/eventhub/eventhub-backend/pkg/config"
	"github.com/eventhub/eventhub-backend/pkg/db"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/metrics"
	"github.com/eventhub/eventhub-backend/pkg/migrate"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
	"github.com/eventhub/eventhub-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	deps, err := buildDeps(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"timezone": cfg.App.Location().String(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(*deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*routes.Deps, error) {
	conn := dbClient.DB()
	loc := cfg.App.Location()

	fee, gst, token, err := cfg.Pricing.Rates()
	if err != nil {
		return nil, err
	}
	rates := pricing.Rates{PlatformFee: fee, GST: gst, Token: token}

	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	dispatcher, err := notifications.NewDispatcher(dbClient, emitter, logg)
	if err != nil {
		return nil, err
	}
	catalogRepo := catalog.NewRepository(conn)
	ordersRepo := bookings.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)

	leadSvc, err := leads.NewService(leads.ServiceParams{
		Repository: leads.NewRepository(conn),
		Catalog:    catalogRepo,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	bookingSvc, err := bookings.NewService(bookings.ServiceParams{
		Repository: ordersRepo,
		Catalog:    catalogRepo,
		DB:         dbClient,
		Outbox:     emitter,
		Leads:      leadSvc,
		Notifier:   dispatcher,
		Rates:      rates,
		Location:   loc,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	offersRepo := offers.NewRepository(conn)
	offerSvc, err := offers.NewService(offers.ServiceParams{
		Repository: offersRepo,
		Catalog:    catalogRepo,
		Leads:      leadSvc,
		Converter:  bookingSvc,
		DB:         dbClient,
		Outbox:     emitter,
		Notifier:   dispatcher,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repository:    paymentsRepo,
		Orders:        ordersRepo,
		Offers:        offersRepo,
		Leads:         leadSvc,
		Gateway:       payments.NewMockGateway(cfg.Gateway),
		DB:            dbClient,
		Outbox:        emitter,
		Notifier:      dispatcher,
		DefaultMethod: cfg.Gateway.DefaultMethod,
		Logger:        logg,
	})
	if err != nil {
		return nil, err
	}
	cancellationSvc, err := cancellation.NewService(cancellation.ServiceParams{
		Orders:   ordersRepo,
		Payments: paymentsRepo,
		Leads:    leadSvc,
		DB:       dbClient,
		Outbox:   emitter,
		Notifier: dispatcher,
		Location: loc,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	guard, err := payments.NewWebhookGuard(redisClient, cfg.Gateway.WebhookDedupeTTL)
	if err != nil {
		return nil, err
	}

	return &routes.Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Idempotency:  redisClient,
		Offers:       offerSvc,
		Bookings:     bookingSvc,
		Payments:     paymentSvc,
		Cancellation: cancellationSvc,
		Leads:        leadSvc,
		WebhookGuard: guard,
		Webhooks:     metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
	}, nil
}
