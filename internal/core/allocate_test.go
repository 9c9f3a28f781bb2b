package core

import (
	"errors"
	"testing"
	"time"
)

func testGoal(target, saved int64) Goal {
	return Goal{
		ID:     "goal_1",
		Name:   "Vacation to Hawaii",
		Target: Cents(target),
		Saved:  Cents(saved),
		Status: GoalActive,
	}
}

func TestApplyContributionWithinRoom(t *testing.T) {
	now := time.Date(2024, 8, 5, 10, 30, 0, 0, time.UTC)
	alloc, err := ApplyContribution(testGoal(500000, 499950), Cents(25), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alloc.Goal.Saved.Cents != 499975 {
		t.Fatalf("expected saved 499975, got %d", alloc.Goal.Saved.Cents)
	}
	if alloc.Goal.Status != GoalActive {
		t.Fatalf("expected status active, got %s", alloc.Goal.Status)
	}
	if alloc.Overflow.Cents != 0 {
		t.Fatalf("expected no overflow, got %d", alloc.Overflow.Cents)
	}
	if alloc.Contribution == nil {
		t.Fatal("expected a contribution record")
	}
	if alloc.Contribution.Amount.Cents != 25 {
		t.Fatalf("expected contribution 25, got %d", alloc.Contribution.Amount.Cents)
	}
	if alloc.Contribution.GoalID != "goal_1" {
		t.Fatalf("expected goal_1, got %s", alloc.Contribution.GoalID)
	}
	if alloc.Contribution.ID == "" {
		t.Fatal("expected contribution id to be set")
	}
	if !alloc.Contribution.CreatedAt.Equal(now) {
		t.Fatalf("expected created at %v, got %v", now, alloc.Contribution.CreatedAt)
	}
}

func TestApplyContributionClampsAtTarget(t *testing.T) {
	now := time.Now()
	alloc, err := ApplyContribution(testGoal(500000, 499990), Cents(25), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alloc.Goal.Saved.Cents != 500000 {
		t.Fatalf("expected saved clamped at 500000, got %d", alloc.Goal.Saved.Cents)
	}
	if alloc.Goal.Status != GoalCompleted {
		t.Fatalf("expected completed, got %s", alloc.Goal.Status)
	}
	if alloc.Overflow.Cents != 15 {
		t.Fatalf("expected overflow 15, got %d", alloc.Overflow.Cents)
	}
	if alloc.Contribution == nil || alloc.Contribution.Amount.Cents != 10 {
		t.Fatalf("expected applied 10, got %+v", alloc.Contribution)
	}
}

func TestApplyContributionNeverExceedsTarget(t *testing.T) {
	now := time.Now()
	cases := []struct {
		target, saved, amount int64
	}{
		{500000, 0, 1},
		{500000, 499999, 100000},
		{100, 99, 1},
		{100, 0, 100},
		{2500, 1800, 70001},
	}
	for _, tc := range cases {
		alloc, err := ApplyContribution(testGoal(tc.target, tc.saved), Cents(tc.amount), now)
		if err != nil {
			t.Fatalf("case %+v: unexpected error: %v", tc, err)
		}
		if alloc.Goal.Saved.Cents > tc.target {
			t.Fatalf("case %+v: saved %d exceeds target", tc, alloc.Goal.Saved.Cents)
		}
		wantOverflow := tc.amount - (tc.target - tc.saved)
		if wantOverflow < 0 {
			wantOverflow = 0
		}
		if alloc.Overflow.Cents != wantOverflow {
			t.Fatalf("case %+v: expected overflow %d, got %d", tc, wantOverflow, alloc.Overflow.Cents)
		}
	}
}

func TestApplyContributionExactCompletion(t *testing.T) {
	now := time.Now()
	alloc, err := ApplyContribution(testGoal(500000, 499975), Cents(25), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alloc.Goal.Status != GoalCompleted {
		t.Fatalf("expected completed on exact target, got %s", alloc.Goal.Status)
	}
	if alloc.Overflow.Cents != 0 {
		t.Fatalf("expected no overflow, got %d", alloc.Overflow.Cents)
	}

	// A completed goal rejects further automatic contributions.
	if _, err := ApplyContribution(alloc.Goal, Cents(25), now); !errors.Is(err, ErrGoalNotActive) {
		t.Fatalf("expected ErrGoalNotActive, got %v", err)
	}
}

func TestApplyContributionFullGoalYieldsNoRecord(t *testing.T) {
	g := testGoal(500000, 500000)
	alloc, err := ApplyContribution(g, Cents(25), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alloc.Contribution != nil {
		t.Fatalf("expected nil contribution, got %+v", alloc.Contribution)
	}
	if alloc.Overflow.Cents != 25 {
		t.Fatalf("expected full overflow 25, got %d", alloc.Overflow.Cents)
	}
}

func TestApplyContributionErrors(t *testing.T) {
	now := time.Now()
	archived := testGoal(1000, 0)
	archived.Status = GoalArchived
	completed := testGoal(1000, 1000)
	completed.Status = GoalCompleted

	if _, err := ApplyContribution(archived, Cents(10), now); !errors.Is(err, ErrGoalNotActive) {
		t.Fatalf("expected ErrGoalNotActive for archived goal, got %v", err)
	}
	if _, err := ApplyContribution(completed, Cents(10), now); !errors.Is(err, ErrGoalNotActive) {
		t.Fatalf("expected ErrGoalNotActive for completed goal, got %v", err)
	}
	if _, err := ApplyContribution(testGoal(1000, 0), Cents(0), now); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if _, err := ApplyContribution(testGoal(1000, 0), Cents(-5), now); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}
