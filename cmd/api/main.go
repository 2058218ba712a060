package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kitchenartsandletters/damaged-books-service/api/routes"
	"github.com/kitchenartsandletters/damaged-books-service/internal/classifier"
	"github.com/kitchenartsandletters/damaged-books-service/internal/creationlog"
	"github.com/kitchenartsandletters/damaged-books-service/internal/inventory"
	"github.com/kitchenartsandletters/damaged-books-service/internal/reconcile"
	"github.com/kitchenartsandletters/damaged-books-service/internal/resolver"
	"github.com/kitchenartsandletters/damaged-books-service/internal/rules"
	shopifywebhook "github.com/kitchenartsandletters/damaged-books-service/internal/webhooks/shopify"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/config"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/env"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/metrics"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/migrate"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/redis"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/shopify"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	shopifyClient, err := shopify.NewClient(cfg.Shopify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build shopify client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	store := inventory.NewRepository(dbClient.DB())
	engine := rules.New(shopifyClient, logg, pipelineMetrics)
	pipeline, err := inventory.NewService(inventory.ServiceParams{
		Resolver:   resolver.New(shopifyClient, logg, pipelineMetrics),
		Classifier: classifier.New(),
		Store:      store,
		Rules:      engine,
		Logger:     logg,
		Metrics:    pipelineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build pipeline", err)
		os.Exit(1)
	}

	guard := shopifywebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, logg)
	webhookService, err := shopifywebhook.NewService(shopifywebhook.ServiceParams{
		Pipeline: pipeline,
		Guard:    guard,
		Logger:   logg,
		Metrics:  pipelineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build webhook service", err)
		os.Exit(1)
	}

	reconcileRuns := reconcile.NewRepository(dbClient.DB())
	reconcileLoop, err := reconcile.NewLoop(reconcile.LoopParams{
		Store:    store,
		Pipeline: pipeline,
		Runs:     reconcileRuns,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build reconcile loop", err)
		os.Exit(1)
	}

	creationLog, err := creationlog.NewService(dbClient.DB(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build creation log", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			ShopifyClient:  shopifyClient,
			WebhookService: webhookService,
			Pipeline:       pipeline,
			Store:          store,
			ReconcileLoop:  reconcileLoop,
			ReconcileRuns:  reconcileRuns,
			CreationLog:    creationLog,
			Metrics:        pipelineMetrics,
			Registry:       registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
