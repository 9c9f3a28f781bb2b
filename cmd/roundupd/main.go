package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"roundup/internal/amqp"
	"roundup/internal/backend"
	"roundup/internal/config"
	apphttp "roundup/internal/http"
	"roundup/internal/idempotency"
	"roundup/internal/services"
	"roundup/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	roundupCfg, err := cfg.RoundupConfig()
	if err != nil {
		logger.Error("Invalid round-up rule", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ledger, err := idempotency.Open(cfg.LedgerDBPath)
	if err != nil {
		logger.Error("Failed to open idempotency ledger", "error", err, "path", cfg.LedgerDBPath)
		os.Exit(1)
	}
	defer ledger.Close()

	// AMQP is optional: contributions still apply without the event bus.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, contribution events disabled", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	feedSource, err := backend.New(context.Background(), backend.Type(cfg.FeedBackend), logger)
	if err != nil {
		logger.Error("Failed to initialize transaction feed", "error", err, "backend", cfg.FeedBackend)
		os.Exit(1)
	}

	goals := services.NewGoalService(repo)
	roundups := services.NewRoundupService(repo, ledger, amqpClient, roundupCfg)
	feedSync := services.NewFeedSyncService(feedSource, repo)

	srv := apphttp.NewServer(":"+cfg.Port, goals, roundups, feedSync, feedSource)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting roundupd server",
		"port", cfg.Port,
		"feed_backend", cfg.FeedBackend,
		"roundup_method", cfg.RoundupMethod)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
