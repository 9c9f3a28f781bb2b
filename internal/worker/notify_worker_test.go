package worker

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"roundup/internal/amqp"
	"roundup/internal/core"
	"roundup/internal/storage"
)

type captureNotifier struct {
	sent []Notification
}

func (c *captureNotifier) Notify(_ context.Context, n Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

var workerNow = time.Date(2024, 8, 10, 12, 0, 0, 0, time.UTC)

func newTestWorker(t *testing.T) (*NotifyWorker, *captureNotifier, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "roundup.db"))
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	notifier := &captureNotifier{}
	return NewNotifyWorker(repo, notifier), notifier, repo
}

func seedWorkerGoal(t *testing.T, repo *storage.SQLiteRepository, savedCents int64) {
	t.Helper()
	err := repo.CreateGoal(context.Background(), core.Goal{
		ID:        "goal_1",
		Name:      "Vacation",
		Category:  "travel",
		Target:    core.Money{Cents: 10000},
		Saved:     core.Money{Cents: savedCents},
		Status:    core.GoalActive,
		CreatedAt: workerNow,
		UpdatedAt: workerNow,
	})
	if err != nil {
		t.Fatalf("seed goal: %v", err)
	}
}

func TestContributionNotification(t *testing.T) {
	w, notifier, repo := newTestWorker(t)
	seedWorkerGoal(t, repo, 150)

	err := w.HandleContributionApplied(context.Background(), &amqp.ContributionAppliedMessage{
		ContributionID: "c1",
		GoalID:         "goal_1",
		TransactionID:  "txn_1",
		AmountCents:    75,
		Timestamp:      workerNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	n := notifier.sent[0]
	if n.Type != NotificationRoundup {
		t.Errorf("type = %s", n.Type)
	}
	if !strings.Contains(n.Body, "$0.75") || !strings.Contains(n.Body, "Vacation") {
		t.Errorf("unexpected body: %s", n.Body)
	}
}

func TestMilestoneNotification(t *testing.T) {
	w, notifier, repo := newTestWorker(t)
	// Saved already includes the applied amount: 2400 -> 2600 crosses 25%.
	seedWorkerGoal(t, repo, 2600)

	err := w.HandleContributionApplied(context.Background(), &amqp.ContributionAppliedMessage{
		ContributionID: "c1",
		GoalID:         "goal_1",
		AmountCents:    200,
		Timestamp:      workerNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("expected roundup + milestone, got %d", len(notifier.sent))
	}
	milestone := notifier.sent[1]
	if milestone.Type != NotificationMilestone || !strings.Contains(milestone.Body, "25%") {
		t.Errorf("unexpected milestone: %+v", milestone)
	}
}

func TestNoMilestoneWithinBand(t *testing.T) {
	w, notifier, repo := newTestWorker(t)
	// 2600 -> 2700 stays between 25% and 50%.
	seedWorkerGoal(t, repo, 2700)

	err := w.HandleContributionApplied(context.Background(), &amqp.ContributionAppliedMessage{
		ContributionID: "c1",
		GoalID:         "goal_1",
		AmountCents:    100,
		Timestamp:      workerNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected only the roundup notification, got %d", len(notifier.sent))
	}
}

func TestGoalCompletedNotification(t *testing.T) {
	w, notifier, _ := newTestWorker(t)

	err := w.HandleGoalCompleted(context.Background(), &amqp.GoalCompletedMessage{
		GoalID:      "goal_1",
		GoalName:    "Vacation",
		TargetCents: 10000,
		Timestamp:   workerNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	n := notifier.sent[0]
	if n.Type != NotificationCompleted || !strings.Contains(n.Body, "$100.00") {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestContributionUnknownGoalFails(t *testing.T) {
	w, _, _ := newTestWorker(t)

	err := w.HandleContributionApplied(context.Background(), &amqp.ContributionAppliedMessage{
		ContributionID: "c1",
		GoalID:         "missing",
		AmountCents:    75,
	})
	if err == nil {
		t.Fatal("expected error for unknown goal")
	}
}
