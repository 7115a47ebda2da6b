package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/orderdesk/orderdesk-backend/api/controllers"
	"github.com/orderdesk/orderdesk-backend/api/routes"
	"github.com/orderdesk/orderdesk-backend/internal/activity"
	"github.com/orderdesk/orderdesk-backend/internal/documents"
	"github.com/orderdesk/orderdesk-backend/internal/fieldsync"
	"github.com/orderdesk/orderdesk-backend/internal/fulfillment"
	"github.com/orderdesk/orderdesk-backend/internal/mailer"
	"github.com/orderdesk/orderdesk-backend/internal/orderitems"
	"github.com/orderdesk/orderdesk-backend/internal/orders"
	"github.com/orderdesk/orderdesk-backend/internal/shopify"
	"github.com/orderdesk/orderdesk-backend/internal/sizes"
	"github.com/orderdesk/orderdesk-backend/internal/thumbnails"
	"github.com/orderdesk/orderdesk-backend/pkg/config"
	"github.com/orderdesk/orderdesk-backend/pkg/db"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
	"github.com/orderdesk/orderdesk-backend/pkg/metrics"
	"github.com/orderdesk/orderdesk-backend/pkg/migrate"
	"github.com/orderdesk/orderdesk-backend/pkg/redis"
	"github.com/orderdesk/orderdesk-backend/pkg/storage/s3"
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

	s3Client, err := s3.New(context.Background(), cfg.S3, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(registry)

	activityService, err := activity.NewService(dbClient.DB())
	requireService(logg, "activity service", err)

	docsGenerator, err := documents.NewGenerator(s3Client, logg)
	requireService(logg, "document generator", err)

	var syncer fulfillment.FulfillmentSyncer
	if cfg.Shopify.Enabled() {
		shopifyClient, err := shopify.NewClient(context.Background(), cfg.Shopify, logg)
		requireService(logg, "shopify client", err)
		syncer = shopifyClient
	}

	var notifier fulfillment.Notifier
	if cfg.Mail.Enabled() {
		mailClient, err := mailer.NewClient(context.Background(), cfg.Mail, logg)
		requireService(logg, "mail client", err)
		notifier = mailClient
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Repo:     fulfillment.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Activity: activityService,
		Syncer:   syncer,
		Docs:     docsGenerator,
		Notifier: notifier,
		Metrics:  fulfillmentMetrics,
		Logger:   logg,
	})
	requireService(logg, "fulfillment service", err)

	itemsService, err := orderitems.NewService(orderitems.ServiceParams{
		Repo:     orderitems.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Planned:  fulfillmentService,
		Activity: activityService,
		Metrics:  fulfillmentMetrics,
		Logger:   logg,
	})
	requireService(logg, "order items service", err)

	fieldSyncService, err := fieldsync.NewService(dbClient.DB(), dbClient)
	requireService(logg, "field sync service", err)

	sizeCache, err := sizes.NewCache(redisClient, cfg.Redis.SizeCacheTTL)
	requireService(logg, "size cache", err)

	sizeNormalizer, err := sizes.NewNormalizer(dbClient.DB(), sizeCache, logg)
	requireService(logg, "size normalizer", err)

	thumbnailService, err := thumbnails.NewService(s3Client, cfg.Thumbnails, logg)
	requireService(logg, "thumbnail service", err)

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
		Handler: routes.NewRouter(routes.RouterParams{
			Config: cfg,
			Logger: logg,
			Readiness: []controllers.ReadinessCheck{
				{Name: "database", Ping: dbClient.Ping},
				{Name: "redis", Ping: redisClient.Ping},
				{Name: "object storage", Ping: s3Client.Ping},
			},
			Registry:   registry,
			Orders:     orders.NewRepository(dbClient.DB()),
			Fulfill:    fulfillmentService,
			Items:      itemsService,
			Activity:   activityService,
			FieldSync:  fieldSyncService,
			Sizes:      sizeNormalizer,
			Thumbnails: thumbnailService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name, err)
	os.Exit(1)
}
