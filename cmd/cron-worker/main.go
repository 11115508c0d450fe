package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventhub/eventhub-backend/internal/catalog"
	"github.com/eventhub/eventhub-backend/internal/cron"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/pkg/config"
	"github.com/eventhub/eventhub-backend/pkg/db"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/metrics"
	"github.com/eventhub/eventhub-backend/pkg/migrate"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
	"github.com/eventhub/eventhub-backend/pkg/redis"
)

var runOnce = flag.Bool("once", false, "run every job a single time and exit")

func main() {
	flag.Parse()
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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+envName(cfg.App.Env)), cfg.Scheduler.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient, metricsCollector)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Scheduler.Interval,
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
	})
	logg.Info(ctx, "starting cron worker")

	if *runOnce {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron run failed", err)
			os.Exit(1)
		}
		return
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func envName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, collector *metrics.CronJobMetrics) (*cron.Registry, error) {
	conn := dbClient.DB()
	loc := cfg.App.Location()
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)
	dispatcher, err := notifications.NewDispatcher(dbClient, emitter, logg)
	if err != nil {
		return nil, err
	}
	leadSvc, err := leads.NewService(leads.ServiceParams{
		Repository: leads.NewRepository(conn),
		Catalog:    catalog.NewRepository(conn),
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	store := cron.NewOrderStore(conn)

	lifecycle := cron.LifecycleJobParams{
		Logger:    logg,
		DB:        dbClient,
		Store:     store,
		Outbox:    emitter,
		Leads:     leadSvc,
		Notifier:  dispatcher,
		Metrics:   collector,
		Location:  loc,
		UnpaidTTL: cfg.Scheduler.UnpaidOrderTTL,
	}
	reminders := cron.ReminderJobParams{
		Logger:    logg,
		Store:     store,
		Dedupe:    redisClient,
		Notifier:  dispatcher,
		Metrics:   collector,
		Location:  loc,
		DedupeTTL: cfg.Scheduler.ReminderDedupeTTL,
	}

	builders := []func() (cron.Job, error){
		func() (cron.Job, error) { return cron.NewExpireUnpaidJob(lifecycle) },
		func() (cron.Job, error) { return cron.NewPromoteInProgressJob(lifecycle) },
		func() (cron.Job, error) { return cron.NewAutoCompleteJob(lifecycle) },
		func() (cron.Job, error) { return cron.NewUpcomingReminderJob(reminders) },
		func() (cron.Job, error) { return cron.NewCompletionReminderJob(reminders) },
		func() (cron.Job, error) { return cron.NewOverdueReminderJob(reminders) },
		func() (cron.Job, error) {
			return cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
				Logger:     logg,
				Repository: outboxRepo,
				Metrics:    collector,
				Retention:  cfg.Outbox.RetentionDays,
			})
		},
	}
	jobs := make([]cron.Job, 0, len(builders))
	for _, build := range builders {
		job, err := build()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return cron.NewRegistry(jobs...)
}
