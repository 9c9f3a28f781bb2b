package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"roundup/internal/amqp"
	"roundup/internal/core"
	"roundup/internal/idempotency"
	"roundup/internal/storage"
)

// ErrAlreadyApplied is returned when a round-up for the transaction was
// applied before. The original outcome is not replayed.
var ErrAlreadyApplied = errors.New("roundup already applied for this transaction")

// casRetries bounds how often a lost compare-and-swap on the goal row is
// retried with a fresh read before giving up.
const casRetries = 3

// RoundupOutcome is what a processed transaction produced. Overflow redirect
// is optional; OverflowContribution is nil unless an overflow goal was given
// and absorbed something.
type RoundupOutcome struct {
	Result               core.RoundupResult
	OverflowContribution *core.Contribution
}

// RoundupService orchestrates the round-up pipeline: idempotency reservation,
// engine computation, persistence and event publishing.
type RoundupService struct {
	storage    *storage.SQLiteRepository
	ledger     *idempotency.Ledger
	amqpClient *amqp.Client

	mu  sync.RWMutex
	cfg core.RoundupConfig

	now func() time.Time
}

func NewRoundupService(storage *storage.SQLiteRepository, ledger *idempotency.Ledger, amqpClient *amqp.Client, cfg core.RoundupConfig) *RoundupService {
	return &RoundupService{
		storage:    storage,
		ledger:     ledger,
		amqpClient: amqpClient,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Settings returns the current round-up configuration.
func (s *RoundupService) Settings() core.RoundupConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// UpdateSettings replaces the round-up configuration after validating it.
func (s *RoundupService) UpdateSettings(cfg core.RoundupConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// ProcessTransaction applies the round-up of a stored transaction to a goal.
//
// Applied at most once per transaction id: a replay returns ErrAlreadyApplied
// without touching the goal. A zero round-up (whole-unit purchase) is a
// successful no-op and takes no reservation, so the transaction can still be
// processed later under different settings.
//
// When overflowGoalID is set, overflow that did not fit in the primary goal
// is redirected there as a second contribution.
func (s *RoundupService) ProcessTransaction(ctx context.Context, transactionID, goalID, overflowGoalID string) (RoundupOutcome, error) {
	txn, err := s.storage.GetTransaction(ctx, transactionID)
	if err != nil {
		return RoundupOutcome{}, err
	}

	applied, err := s.ledger.Applied(txn.ID)
	if err != nil {
		return RoundupOutcome{}, fmt.Errorf("check ledger: %w", err)
	}
	if applied {
		return RoundupOutcome{}, ErrAlreadyApplied
	}

	cfg := s.Settings()

	var res core.RoundupResult
	for attempt := 0; ; attempt++ {
		goal, err := s.storage.GetGoal(ctx, goalID)
		if err != nil {
			return RoundupOutcome{}, err
		}
		expectedSaved := goal.Saved.Cents

		res, err = core.ProcessRoundup(txn, goal, cfg, s.now())
		if err != nil {
			return RoundupOutcome{}, err
		}
		if res.Contribution == nil {
			outcome := RoundupOutcome{Result: res}
			if overflowGoalID == "" || res.Overflow.IsZero() {
				// Zero round-up, or a full goal with nowhere to redirect.
				// Nothing moves, so no reservation is taken and the
				// transaction stays processable.
				slog.InfoContext(ctx, "Round-up produced no contribution",
					"transaction_id", txn.ID,
					"goal_id", goalID,
					"overflow_cents", res.Overflow.Cents)
				return outcome, nil
			}

			// The redirect moves real money into the overflow goal, so it
			// takes the at-most-once reservation like a primary contribution.
			reserved, err := s.ledger.Reserve(txn.ID)
			if err != nil {
				return RoundupOutcome{}, fmt.Errorf("reserve transaction: %w", err)
			}
			if !reserved {
				return RoundupOutcome{}, ErrAlreadyApplied
			}
			if err := s.redirectOverflow(ctx, &outcome, overflowGoalID); err != nil {
				if relErr := s.ledger.Release(txn.ID); relErr != nil {
					slog.ErrorContext(ctx, "Failed to release reservation",
						"transaction_id", txn.ID, "error", relErr)
				}
				return outcome, err
			}
			return outcome, nil
		}

		reserved, err := s.ledger.Reserve(txn.ID)
		if err != nil {
			return RoundupOutcome{}, fmt.Errorf("reserve transaction: %w", err)
		}
		if !reserved {
			return RoundupOutcome{}, ErrAlreadyApplied
		}

		err = s.storage.ApplyAllocation(ctx, res, expectedSaved)
		if err == nil {
			break
		}
		// Persistence failed, release so a retry can re-apply.
		if relErr := s.ledger.Release(txn.ID); relErr != nil {
			slog.ErrorContext(ctx, "Failed to release reservation",
				"transaction_id", txn.ID, "error", relErr)
		}
		if errors.Is(err, storage.ErrConflict) && attempt < casRetries {
			continue
		}
		return RoundupOutcome{}, err
	}

	s.publishContribution(ctx, res.Contribution, res.Goal, res.Overflow.Cents)

	outcome := RoundupOutcome{Result: res}
	if err := s.redirectOverflow(ctx, &outcome, overflowGoalID); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// Contribute applies a manual deposit to a goal, outside any transaction.
func (s *RoundupService) Contribute(ctx context.Context, goalID string, amount core.Money) (core.Allocation, error) {
	for attempt := 0; ; attempt++ {
		goal, err := s.storage.GetGoal(ctx, goalID)
		if err != nil {
			return core.Allocation{}, err
		}
		expectedSaved := goal.Saved.Cents

		alloc, err := core.ApplyContribution(goal, amount, s.now())
		if err != nil {
			return core.Allocation{}, err
		}

		// Goal update and contribution row land in one transaction so a
		// failed insert can never leave the saved amount bumped on its own.
		if err := s.storage.SaveContribution(ctx, alloc.Goal, expectedSaved, alloc.Contribution); err != nil {
			if errors.Is(err, storage.ErrConflict) && attempt < casRetries {
				continue
			}
			return core.Allocation{}, err
		}

		if alloc.Contribution != nil {
			s.publishContribution(ctx, alloc.Contribution, alloc.Goal, alloc.Overflow.Cents)
		}
		return alloc, nil
	}
}

// redirectOverflow sends the outcome's overflow into the named goal. A
// failure here is reported but does not undo the primary contribution.
func (s *RoundupService) redirectOverflow(ctx context.Context, outcome *RoundupOutcome, overflowGoalID string) error {
	if overflowGoalID == "" || outcome.Result.Overflow.IsZero() {
		return nil
	}
	alloc, err := s.Contribute(ctx, overflowGoalID, outcome.Result.Overflow)
	if err != nil {
		return fmt.Errorf("redirect overflow to goal %s: %w", overflowGoalID, err)
	}
	outcome.OverflowContribution = alloc.Contribution
	return nil
}

func (s *RoundupService) publishContribution(ctx context.Context, c *core.Contribution, goal core.Goal, overflowCents int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping contribution event")
		return
	}

	completed := goal.Status == core.GoalCompleted
	err := s.amqpClient.PublishContributionApplied(ctx, &amqp.ContributionAppliedMessage{
		ContributionID: c.ID,
		GoalID:         goal.ID,
		TransactionID:  c.TransactionID,
		AmountCents:    c.Amount.Cents,
		OverflowCents:  overflowCents,
		GoalCompleted:  completed,
		Timestamp:      c.CreatedAt,
	})
	if err != nil {
		// Don't fail the request, the contribution is persisted locally.
		slog.ErrorContext(ctx, "Failed to publish contribution event",
			"contribution_id", c.ID, "error", err)
	}

	if completed {
		err := s.amqpClient.PublishGoalCompleted(ctx, &amqp.GoalCompletedMessage{
			GoalID:      goal.ID,
			GoalName:    goal.Name,
			TargetCents: goal.Target.Cents,
			Timestamp:   goal.UpdatedAt,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to publish goal completed event",
				"goal_id", goal.ID, "error", err)
		}
	}
}

// Close closes storage, ledger and AMQP connections.
func (s *RoundupService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ledger: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close roundup service: %v", errs)
	}
	return nil
}
