package core

import (
	"time"

	"github.com/google/uuid"
)

// Allocation is the outcome of applying a contribution amount to a goal.
// Contribution is nil when nothing could be applied (the goal had no room);
// in that case Overflow carries the full requested amount.
type Allocation struct {
	Goal         Goal
	Contribution *Contribution
	Overflow     Money
}

// ApplyContribution applies amount to a goal, clamping at the target.
//
// The applied portion is min(amount, room); the remainder is reported as
// overflow so callers can redirect it (to a next goal or back to the
// user's pool) rather than losing it silently. Reaching the target flips
// the goal to completed; completed goals reject further contributions.
//
// The function holds no state and is not idempotent: invoking it twice
// with the same amount applies it twice. At-most-once application per
// logical event is the caller's responsibility.
func ApplyContribution(goal Goal, amount Money, now time.Time) (Allocation, error) {
	if goal.Status != GoalActive {
		return Allocation{}, ErrGoalNotActive
	}
	if amount.Cents <= 0 {
		return Allocation{}, ErrInvalidAmount
	}

	room := goal.Room()
	applied := amount
	if applied.Cents > room.Cents {
		applied = room
	}
	overflow := amount.Sub(applied)

	updated := goal
	updated.Saved = goal.Saved.Add(applied)
	updated.UpdatedAt = now
	if updated.Saved.Cents >= updated.Target.Cents {
		updated.Status = GoalCompleted
	}

	// A zero-amount contribution record is never created.
	if applied.IsZero() {
		return Allocation{Goal: updated, Contribution: nil, Overflow: overflow}, nil
	}

	contribution := &Contribution{
		ID:        uuid.NewString(),
		GoalID:    goal.ID,
		Amount:    applied,
		CreatedAt: now,
	}
	return Allocation{Goal: updated, Contribution: contribution, Overflow: overflow}, nil
}
