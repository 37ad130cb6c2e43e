package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"deyn/internal/amqp"
	"deyn/internal/cache"
	"deyn/internal/config"
	appcore "deyn/internal/core"
	apphttp "deyn/internal/http"
	applog "deyn/internal/log"
	"deyn/internal/services"
	"deyn/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, applog.ComponentApp)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var store storage.Store
	switch cfg.DataBackend {
	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		store = s
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store = storage.NewMemoryStore()
		logger.Info("Initialized memory backend")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Mutation events only feed the worker; the API works
			// without them.
			logger.Warn("AMQP unavailable, mutation events disabled", "error", err)
		} else {
			amqpClient = client
		}
	}

	var summaryCache cache.Cache[appcore.Summary]
	manager := cache.NewManager()
	if cfg.RedisAddr != "" {
		summaryCache = cache.NewRedisCache[appcore.Summary](cfg.RedisAddr, cfg.SummaryCacheTTL)
		logger.Info("Using redis summary cache", "addr", cfg.RedisAddr)
	} else {
		lru := cache.NewLRUCache[appcore.Summary](8, cfg.SummaryCacheTTL)
		manager.Register(lru)
		manager.StartCleanup(time.Hour)
		defer manager.Stop()
		summaryCache = lru
	}

	obligations := services.NewObligationService(store, amqpClient)
	dashboard := services.NewDashboardService(store, summaryCache)
	srv := apphttp.NewServer(":"+cfg.Port, obligations, dashboard, store, cfg.Locale)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
	}

	if err := obligations.Close(); err != nil {
		logger.Error("Close error", "error", err)
	}
	logger.Info("Server stopped")
}
