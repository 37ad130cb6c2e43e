package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"deyn/internal/amqp"
	"deyn/internal/cache"
	"deyn/internal/config"
	appcore "deyn/internal/core"
	applog "deyn/internal/log"
	"deyn/internal/services"
	"deyn/internal/storage"
	"deyn/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, applog.ComponentWorker)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	// The worker shares records with the server, so it needs a durable
	// backend; a private in-memory store would always be empty.
	if cfg.DataBackend != "sqlite" {
		logger.Error("Worker requires DATA_BACKEND=sqlite")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	var summaryCache cache.Cache[appcore.Summary]
	if cfg.RedisAddr != "" {
		summaryCache = cache.NewRedisCache[appcore.Summary](cfg.RedisAddr, cfg.SummaryCacheTTL)
	} else {
		summaryCache = cache.NewLRUCache[appcore.Summary](8, cfg.SummaryCacheTTL)
	}

	dashboard := services.NewDashboardService(store, summaryCache)
	alertWorker := worker.NewAlertWorker(dashboard)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeMutations(gctx, func(msg *amqp.MutationMessage) error {
			return alertWorker.HandleMutation(gctx, msg)
		})
	})

	logger.Info("Worker started", "queue", cfg.AMQPQueue)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
