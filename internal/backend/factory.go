// Package backend selects and builds the configured transaction feed.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"roundup/internal/feed"
	"roundup/internal/feed/google"
	"roundup/internal/feed/memory"
)

// Type identifies a transaction feed implementation.
type Type string

const (
	MemoryBackend Type = "memory"
	SheetsBackend Type = "sheets"
)

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// New creates the transaction feed selected by backend type.
func New(ctx context.Context, backend Type, logger *slog.Logger) (feed.Feed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !backend.IsValid() {
		return nil, fmt.Errorf("invalid feed backend: %s", backend)
	}

	switch backend {
	case SheetsBackend:
		cli, err := google.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets feed: %w", err)
		}
		logger.Info("Initialized Google Sheets feed")
		return cli, nil
	case MemoryBackend:
		store := memory.NewWithSampleData()
		logger.Info("Initialized memory feed",
			"accounts", len(store.Accounts()),
			"transactions", store.Len())
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported feed backend: %s", backend)
	}
}
