package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"roundup/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func storedGoal(t *testing.T, repo *SQLiteRepository, id string, target, saved int64) core.Goal {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	g := core.Goal{
		ID:        id,
		Name:      "Vacation to Hawaii",
		Category:  "travel",
		Target:    core.Cents(target),
		Saved:     core.Cents(saved),
		Status:    core.GoalActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateGoal(context.Background(), g); err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return g
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// A current schema must be a no-op, not an error.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestGoalRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := storedGoal(t, repo, "goal_1", 500000, 125000)

	got, err := repo.GetGoal(ctx, "goal_1")
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if got.Name != want.Name || got.Target.Cents != 500000 || got.Saved.Cents != 125000 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Status != core.GoalActive {
		t.Fatalf("expected active, got %s", got.Status)
	}

	if _, err := repo.GetGoal(ctx, "missing"); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}

	goals, err := repo.ListGoals(ctx)
	if err != nil {
		t.Fatalf("list goals: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(goals))
	}
}

func TestUpdateGoalCompareAndSwap(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g := storedGoal(t, repo, "goal_1", 500000, 100000)

	updated := g
	updated.Saved = core.Cents(100025)
	updated.UpdatedAt = time.Now().UTC()
	if err := repo.UpdateGoal(ctx, updated, 100000); err != nil {
		t.Fatalf("update goal: %v", err)
	}

	// Stale expected value must be rejected.
	stale := updated
	stale.Saved = core.Cents(100050)
	if err := repo.UpdateGoal(ctx, stale, 100000); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	missing := updated
	missing.ID = "missing"
	if err := repo.UpdateGoal(ctx, missing, 100025); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestTransactionUpsertPreservesIdentity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	txn := core.Transaction{
		ID:       "txn_1",
		Merchant: "Starbucks",
		Amount:   core.Cents(475),
		Category: "food",
		Date:     time.Date(2024, 8, 4, 10, 30, 0, 0, time.UTC),
	}
	if err := repo.UpsertTransaction(ctx, txn); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Second upsert with refreshed bank data replaces the row, not duplicates it.
	txn.Amount = core.Cents(525)
	if err := repo.UpsertTransaction(ctx, txn); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	list, err := repo.ListTransactions(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(list))
	}
	if list[0].Amount.Cents != 525 {
		t.Fatalf("expected updated amount, got %d", list[0].Amount.Cents)
	}

	if _, err := repo.GetTransaction(ctx, "missing"); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestListTransactionsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, id := range []string{"txn_old", "txn_new", "txn_mid"} {
		days := []int{1, 5, 3}[i]
		txn := core.Transaction{
			ID:     id,
			Amount: core.Cents(100),
			Date:   time.Date(2024, 8, days, 0, 0, 0, 0, time.UTC),
		}
		if err := repo.UpsertTransaction(ctx, txn); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	list, err := repo.ListTransactions(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "txn_new" || list[1].ID != "txn_mid" {
		t.Fatalf("expected [txn_new txn_mid], got %+v", list)
	}
}

func TestApplyAllocationTransactional(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	storedGoal(t, repo, "goal_1", 500000, 499950)

	now := time.Now().UTC().Truncate(time.Millisecond)
	res := core.RoundupResult{
		Goal: core.Goal{
			ID:        "goal_1",
			Saved:     core.Cents(499975),
			Status:    core.GoalActive,
			UpdatedAt: now,
		},
		Transaction: core.Transaction{
			ID:           "txn_1",
			Merchant:     "Starbucks",
			Amount:       core.Cents(475),
			Date:         now,
			Roundup:      core.Cents(25),
			LinkedGoalID: "goal_1",
		},
		Contribution: &core.Contribution{
			ID:            "contrib_1",
			GoalID:        "goal_1",
			TransactionID: "txn_1",
			Amount:        core.Cents(25),
			CreatedAt:     now,
		},
	}

	if err := repo.ApplyAllocation(ctx, res, 499950); err != nil {
		t.Fatalf("apply allocation: %v", err)
	}

	g, err := repo.GetGoal(ctx, "goal_1")
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if g.Saved.Cents != 499975 {
		t.Fatalf("expected saved 499975, got %d", g.Saved.Cents)
	}

	txn, err := repo.GetTransaction(ctx, "txn_1")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Roundup.Cents != 25 || txn.LinkedGoalID != "goal_1" {
		t.Fatalf("transaction roundup state not persisted: %+v", txn)
	}

	contribs, err := repo.ListContributions(ctx, "goal_1")
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(contribs) != 1 || contribs[0].Amount.Cents != 25 {
		t.Fatalf("expected one 25c contribution, got %+v", contribs)
	}

	// Replaying with a stale expected value fails and writes nothing new.
	res.Contribution.ID = "contrib_2"
	if err := repo.ApplyAllocation(ctx, res, 499950); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	contribs, _ = repo.ListContributions(ctx, "goal_1")
	if len(contribs) != 1 {
		t.Fatalf("conflicting allocation must not persist a contribution, got %d", len(contribs))
	}
}

func TestSaveContributionTransactional(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	storedGoal(t, repo, "goal_1", 10000, 1000)

	now := time.Now().UTC().Truncate(time.Millisecond)
	updated := core.Goal{
		ID:        "goal_1",
		Saved:     core.Cents(1100),
		Status:    core.GoalActive,
		UpdatedAt: now,
	}
	c := &core.Contribution{
		ID:        "contrib_1",
		GoalID:    "goal_1",
		Amount:    core.Cents(100),
		CreatedAt: now,
	}

	// A lost CAS leaves neither the goal nor the contribution behind.
	if err := repo.SaveContribution(ctx, updated, 999, c); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	contribs, err := repo.ListContributions(ctx, "goal_1")
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(contribs) != 0 {
		t.Fatalf("conflict must not persist a contribution, got %d", len(contribs))
	}
	g, _ := repo.GetGoal(ctx, "goal_1")
	if g.Saved.Cents != 1000 {
		t.Fatalf("conflict must not touch the goal, saved = %d", g.Saved.Cents)
	}

	if err := repo.SaveContribution(ctx, updated, 1000, c); err != nil {
		t.Fatalf("save contribution: %v", err)
	}
	g, _ = repo.GetGoal(ctx, "goal_1")
	if g.Saved.Cents != 1100 {
		t.Fatalf("expected saved 1100, got %d", g.Saved.Cents)
	}
	contribs, _ = repo.ListContributions(ctx, "goal_1")
	if len(contribs) != 1 || contribs[0].Amount.Cents != 100 {
		t.Fatalf("expected one 100c contribution, got %+v", contribs)
	}

	missing := updated
	missing.ID = "missing"
	mc := *c
	mc.ID = "contrib_2"
	mc.GoalID = "missing"
	if err := repo.SaveContribution(ctx, missing, 0, &mc); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}
