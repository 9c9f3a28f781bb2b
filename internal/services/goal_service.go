package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"roundup/internal/core"
	"roundup/internal/storage"
)

// GoalService manages the goal lifecycle and read-side views.
type GoalService struct {
	storage *storage.SQLiteRepository
	now     func() time.Time
}

func NewGoalService(storage *storage.SQLiteRepository) *GoalService {
	return &GoalService{storage: storage, now: time.Now}
}

// CreateGoal creates an active goal with a generated id.
func (s *GoalService) CreateGoal(ctx context.Context, name, category string, target core.Money, deadline time.Time) (core.Goal, error) {
	now := s.now()
	goal := core.Goal{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Category:  strings.TrimSpace(category),
		Target:    target,
		Status:    core.GoalActive,
		Deadline:  deadline,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.storage.CreateGoal(ctx, goal); err != nil {
		return core.Goal{}, err
	}

	slog.InfoContext(ctx, "Goal created",
		"goal_id", goal.ID,
		"name", goal.Name,
		"target_cents", goal.Target.Cents)

	return goal, nil
}

func (s *GoalService) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	return s.storage.GetGoal(ctx, id)
}

func (s *GoalService) ListGoals(ctx context.Context) ([]core.Goal, error) {
	return s.storage.ListGoals(ctx)
}

func (s *GoalService) ListContributions(ctx context.Context, goalID string) ([]core.Contribution, error) {
	if _, err := s.storage.GetGoal(ctx, goalID); err != nil {
		return nil, err
	}
	return s.storage.ListContributions(ctx, goalID)
}

// ListStoredTransactions returns persisted transactions, newest first.
// limit <= 0 returns everything.
func (s *GoalService) ListStoredTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, limit)
}

// ArchiveGoal retires an active goal. Archived goals keep their history but
// receive no further contributions.
func (s *GoalService) ArchiveGoal(ctx context.Context, id string) (core.Goal, error) {
	return s.transition(ctx, id, core.Goal.Archive)
}

// ReopenGoal moves a completed goal back to active, typically after the user
// raises its target.
func (s *GoalService) ReopenGoal(ctx context.Context, id string) (core.Goal, error) {
	return s.transition(ctx, id, core.Goal.Reopen)
}

func (s *GoalService) transition(ctx context.Context, id string, change func(core.Goal, time.Time) (core.Goal, error)) (core.Goal, error) {
	goal, err := s.storage.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, err
	}
	updated, err := change(goal, s.now())
	if err != nil {
		return core.Goal{}, err
	}
	if err := s.storage.UpdateGoal(ctx, updated, goal.Saved.Cents); err != nil {
		return core.Goal{}, fmt.Errorf("persist goal transition: %w", err)
	}

	slog.InfoContext(ctx, "Goal status changed",
		"goal_id", updated.ID,
		"status", string(updated.Status))

	return updated, nil
}

// Stats aggregates the savings overview and round-up statistics from the
// stored goals and transactions.
func (s *GoalService) Stats(ctx context.Context) (core.SavingsOverview, core.RoundupStats, error) {
	goals, err := s.storage.ListGoals(ctx)
	if err != nil {
		return core.SavingsOverview{}, core.RoundupStats{}, err
	}
	txns, err := s.storage.ListTransactions(ctx, 0)
	if err != nil {
		return core.SavingsOverview{}, core.RoundupStats{}, err
	}
	return core.SummarizeGoals(goals), core.SummarizeRoundups(txns), nil
}
