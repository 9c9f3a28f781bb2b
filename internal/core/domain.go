package core

import (
	"errors"
	"strings"
	"time"
)

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalArchived  GoalStatus = "archived"
)

type (
	GoalStatus string

	// Transaction is an economic event a round-up may attach to.
	// Amount is the raw purchase amount; Roundup and LinkedGoalID are set
	// by the engine at contribution time and are zero/empty otherwise.
	Transaction struct {
		ID           string
		AccountID    string
		Merchant     string
		Amount       Money
		Category     string
		Date         time.Time
		Roundup      Money
		LinkedGoalID string
	}

	// Goal is a savings target the user is accumulating funds toward.
	// Saved never exceeds Target after any engine operation.
	Goal struct {
		ID        string
		Name      string
		Category  string
		Target    Money
		Saved     Money
		Status    GoalStatus
		Deadline  time.Time // zero when no deadline is set
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Contribution records one round-up or manual deposit applied to a goal.
	// TransactionID is empty for manual contributions. Immutable once created.
	Contribution struct {
		ID            string
		GoalID        string
		TransactionID string
		Amount        Money
		CreatedAt     time.Time
	}
)

var (
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrUnsupportedRoundupMethod = errors.New("unsupported roundup method")
	ErrGoalNotActive            = errors.New("goal not active")
	ErrGoalNotFound             = errors.New("goal not found")
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrInvalidTransition        = errors.New("invalid goal status transition")
	ErrEmptyName                = errors.New("empty goal name")
)

// IsValid returns true if the status is one of the known lifecycle states.
func (s GoalStatus) IsValid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalArchived:
		return true
	default:
		return false
	}
}

func (m Money) validateAmount() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("empty transaction id")
	}
	if t.Date.IsZero() {
		return errors.New("transaction date cannot be zero")
	}
	if err := t.Amount.validateAmount(); err != nil {
		return err
	}
	if err := t.Roundup.validateAmount(); err != nil {
		return err
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return errors.New("empty goal id")
	}
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.Name) > 200 {
		return errors.New("goal name too long (max 200 characters)")
	}
	if g.Target.Cents <= 0 {
		return ErrInvalidAmount
	}
	if g.Saved.IsNegative() {
		return ErrInvalidAmount
	}
	if g.Saved.Cents > g.Target.Cents {
		return errors.New("saved amount exceeds target")
	}
	if !g.Status.IsValid() {
		return errors.New("invalid goal status")
	}
	return nil
}

// Room returns how much the goal can still absorb before reaching its target.
// Never negative.
func (g Goal) Room() Money {
	room := g.Target.Cents - g.Saved.Cents
	if room < 0 {
		room = 0
	}
	return Money{Cents: room}
}

// Progress returns completion as a fraction in [0,1], clamped at 1.
func (g Goal) Progress() float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	p := float64(g.Saved.Cents) / float64(g.Target.Cents)
	if p > 1 {
		return 1
	}
	return p
}

// Archive marks the goal archived. Only an active goal may be archived;
// this is an external store action, the engine never drives it.
func (g Goal) Archive(now time.Time) (Goal, error) {
	if g.Status != GoalActive {
		return g, ErrInvalidTransition
	}
	g.Status = GoalArchived
	g.UpdatedAt = now
	return g, nil
}

// Reopen moves a completed goal back to active so it can receive further
// contributions. External store action only.
func (g Goal) Reopen(now time.Time) (Goal, error) {
	if g.Status != GoalCompleted {
		return g, ErrInvalidTransition
	}
	g.Status = GoalActive
	g.UpdatedAt = now
	return g, nil
}

func (c Contribution) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("empty contribution id")
	}
	if strings.TrimSpace(c.GoalID) == "" {
		return errors.New("empty contribution goal id")
	}
	if c.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
