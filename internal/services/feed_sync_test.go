package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"roundup/internal/core"
	"roundup/internal/feed/memory"
	"roundup/internal/idempotency"
	"roundup/internal/storage"
)

func newTestFeedSync(t *testing.T) (*FeedSyncService, *memory.Store, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "roundup.db"))
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := memory.NewWithSampleData()
	return NewFeedSyncService(store, repo), store, repo
}

func TestSyncImportsFeed(t *testing.T) {
	svc, _, repo := newTestFeedSync(t)
	ctx := context.Background()

	report, err := svc.Sync(ctx, "")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.Fetched != 3 || report.New != 3 || report.Total != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}

	txns, err := repo.ListTransactions(ctx, 0)
	if err != nil || len(txns) != 3 {
		t.Fatalf("expected 3 stored transactions, got %d err=%v", len(txns), err)
	}
	// Stored in the merge's display order, newest first.
	for i := 1; i < len(txns); i++ {
		if txns[i].Date.After(txns[i-1].Date) {
			t.Fatalf("stored transactions out of order")
		}
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	svc, _, _ := newTestFeedSync(t)
	ctx := context.Background()

	if _, err := svc.Sync(ctx, ""); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	report, err := svc.Sync(ctx, "")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.New != 0 || report.Total != 3 {
		t.Fatalf("repeat sync not a no-op: %+v", report)
	}
}

func TestSyncPreservesRoundupState(t *testing.T) {
	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "roundup.db"))
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	ledger, err := idempotency.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	t.Cleanup(func() {
		ledger.Close()
		repo.Close()
	})

	store := memory.NewWithSampleData()
	sync := NewFeedSyncService(store, repo)
	rs := NewRoundupService(repo, ledger, nil, core.DefaultRoundupConfig())

	ctx := context.Background()
	if _, err := sync.Sync(ctx, ""); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	if err := repo.CreateGoal(ctx, core.Goal{
		ID: "goal_1", Name: "Trip", Category: "travel",
		Target: core.Money{Cents: 100000}, Status: core.GoalActive,
		CreatedAt: testNow, UpdatedAt: testNow,
	}); err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if _, err := rs.ProcessTransaction(ctx, "txn_1", "goal_1", ""); err != nil {
		t.Fatalf("process roundup: %v", err)
	}

	// New remote activity arrives; a re-sync must keep the local round-up.
	store.AddTransaction(core.Transaction{
		ID: "txn_4", AccountID: "bank_1", Merchant: "Whole Foods",
		Amount: core.Money{Cents: 6732}, Category: "food",
		Date: time.Date(2024, 8, 6, 0, 0, 0, 0, time.UTC),
	})
	report, err := sync.Sync(ctx, "")
	if err != nil {
		t.Fatalf("re-sync: %v", err)
	}
	if report.New != 1 || report.Total != 4 {
		t.Fatalf("unexpected report: %+v", report)
	}

	txn, err := repo.GetTransaction(ctx, "txn_1")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Roundup.Cents != 75 || txn.LinkedGoalID != "goal_1" {
		t.Fatalf("round-up state lost in merge: roundup=%d goal=%q", txn.Roundup.Cents, txn.LinkedGoalID)
	}
}
