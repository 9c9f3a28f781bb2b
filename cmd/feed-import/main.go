// Command feed-import pulls bank transactions from the configured feed into
// the local store, either once or on an interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"roundup/internal/backend"
	"roundup/internal/config"
	"roundup/internal/feed"
	"roundup/internal/services"
	"roundup/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	once := flag.Bool("once", false, "run a single import and exit")
	accountID := flag.String("account", "", "import a single account instead of all accounts")
	flag.Parse()

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

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feedSource, err := backend.New(ctx, backend.Type(cfg.FeedBackend), logger)
	if err != nil {
		logger.Error("Failed to initialize transaction feed", "error", err, "backend", cfg.FeedBackend)
		os.Exit(1)
	}

	feedSync := services.NewFeedSyncService(feedSource, repo)

	runImport := func(ctx context.Context) error {
		if *accountID != "" {
			report, err := feedSync.Sync(ctx, *accountID)
			if err != nil {
				return err
			}
			logger.Info("Account imported",
				"account_id", *accountID,
				"fetched", report.Fetched,
				"new", report.New)
			return nil
		}
		return importAllAccounts(ctx, feedSource, feedSync, logger)
	}

	if *once {
		if err := runImport(ctx); err != nil {
			logger.Error("Import failed", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("Starting feed-import loop",
		"interval", cfg.ImportInterval.String(),
		"feed_backend", cfg.FeedBackend)

	// Import immediately, then on the configured interval.
	if err := runImport(ctx); err != nil {
		logger.Error("Import failed", "error", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.ImportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := runImport(ctx); err != nil {
				logger.Error("Import failed", "error", err)
			}
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			return
		}
	}
}

// importAllAccounts syncs every feed account, a few in parallel. The first
// failing account cancels the rest.
func importAllAccounts(ctx context.Context, feedSource feed.Feed, feedSync *services.FeedSyncService, logger *slog.Logger) error {
	accounts, err := feedSource.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, account := range accounts {
		g.Go(func() error {
			report, err := feedSync.Sync(ctx, account.ID)
			if err != nil {
				return fmt.Errorf("sync account %s: %w", account.ID, err)
			}
			logger.Info("Account imported",
				"account_id", account.ID,
				"fetched", report.Fetched,
				"new", report.New)
			return nil
		})
	}
	return g.Wait()
}
