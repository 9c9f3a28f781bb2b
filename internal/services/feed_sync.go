package services

import (
	"context"
	"fmt"
	"log/slog"

	"roundup/internal/core"
	"roundup/internal/feed"
	"roundup/internal/storage"
)

// SyncReport summarizes one feed sync run.
type SyncReport struct {
	Fetched int // transactions returned by the feed
	Total   int // merged transaction count
	New     int // transactions not stored before
}

// FeedSyncService pulls the remote transaction feed and reconciles it with
// the local store. The remote feed is authoritative for bank-reported fields;
// locally recorded round-up state survives the merge.
type FeedSyncService struct {
	feed    feed.TransactionReader
	storage *storage.SQLiteRepository
}

func NewFeedSyncService(feed feed.TransactionReader, storage *storage.SQLiteRepository) *FeedSyncService {
	return &FeedSyncService{feed: feed, storage: storage}
}

// Sync fetches an account's transactions (all accounts when accountID is
// empty), merges them with the stored set and persists the result. Running
// it twice against an unchanged feed is a no-op.
func (s *FeedSyncService) Sync(ctx context.Context, accountID string) (SyncReport, error) {
	remote, err := s.feed.ListTransactions(ctx, accountID)
	if err != nil {
		return SyncReport{}, fmt.Errorf("fetch feed: %w", err)
	}

	local, err := s.storage.ListTransactions(ctx, 0)
	if err != nil {
		return SyncReport{}, fmt.Errorf("list stored transactions: %w", err)
	}

	known := make(map[string]struct{}, len(local))
	for _, t := range local {
		known[t.ID] = struct{}{}
	}

	merged := core.MergeTransactionFeeds(local, remote)

	report := SyncReport{Fetched: len(remote), Total: len(merged)}
	for _, t := range merged {
		if _, ok := known[t.ID]; !ok {
			report.New++
		}
		if err := s.storage.UpsertTransaction(ctx, t); err != nil {
			return report, fmt.Errorf("persist transaction %s: %w", t.ID, err)
		}
	}

	slog.InfoContext(ctx, "Feed sync complete",
		"account_id", accountID,
		"fetched", report.Fetched,
		"new", report.New,
		"total", report.Total)

	return report, nil
}
