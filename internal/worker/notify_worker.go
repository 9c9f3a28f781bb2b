// Package worker turns contribution events into user-facing notification
// intents. Delivery itself (push, email) is behind the Notifier port; the
// default sink logs the intent.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"roundup/internal/amqp"
	"roundup/internal/core"
	"roundup/internal/storage"
)

// Milestone fractions that trigger a progress notification when crossed.
var milestones = []float64{0.25, 0.50, 0.75}

// Notification is a delivery-agnostic notification intent.
type Notification struct {
	Type   string
	Title  string
	Body   string
	GoalID string
}

const (
	NotificationRoundup   = "roundup_applied"
	NotificationMilestone = "goal_milestone"
	NotificationCompleted = "goal_completed"
)

// Notifier delivers notification intents.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notification intents to the structured log. Used when
// no push channel is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, "Notification intent",
		"type", n.Type,
		"title", n.Title,
		"body", n.Body,
		"goal_id", n.GoalID)
	return nil
}

// NotifyWorker consumes contribution events and emits notifications for
// applied round-ups, crossed progress milestones and completed goals.
type NotifyWorker struct {
	storage  *storage.SQLiteRepository
	notifier Notifier
}

func NewNotifyWorker(storage *storage.SQLiteRepository, notifier Notifier) *NotifyWorker {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &NotifyWorker{storage: storage, notifier: notifier}
}

// Handlers returns the AMQP dispatch table for this worker.
func (w *NotifyWorker) Handlers(ctx context.Context) amqp.Handlers {
	return amqp.Handlers{
		OnContributionApplied: func(msg *amqp.ContributionAppliedMessage) error {
			return w.HandleContributionApplied(ctx, msg)
		},
		OnGoalCompleted: func(msg *amqp.GoalCompletedMessage) error {
			return w.HandleGoalCompleted(ctx, msg)
		},
	}
}

// HandleContributionApplied emits a round-up notification and, when the
// contribution pushed the goal across a milestone, a progress notification.
func (w *NotifyWorker) HandleContributionApplied(ctx context.Context, msg *amqp.ContributionAppliedMessage) error {
	slog.InfoContext(ctx, "Processing contribution event",
		"contribution_id", msg.ContributionID,
		"goal_id", msg.GoalID,
		"amount_cents", msg.AmountCents)

	goal, err := w.storage.GetGoal(ctx, msg.GoalID)
	if err != nil {
		return fmt.Errorf("get goal for notification: %w", err)
	}

	amount := core.Money{Cents: msg.AmountCents}
	body := fmt.Sprintf("$%s was added to your %s goal", amount, goal.Name)
	if msg.TransactionID == "" {
		body = fmt.Sprintf("You deposited $%s into your %s goal", amount, goal.Name)
	}
	if err := w.notifier.Notify(ctx, Notification{
		Type:   NotificationRoundup,
		Title:  "Savings Applied",
		Body:   body,
		GoalID: goal.ID,
	}); err != nil {
		return fmt.Errorf("notify roundup: %w", err)
	}

	// Completion has its own event; milestone checks apply below the target.
	if msg.GoalCompleted {
		return nil
	}
	if crossed, ok := crossedMilestone(goal, msg.AmountCents); ok {
		if err := w.notifier.Notify(ctx, Notification{
			Type:   NotificationMilestone,
			Title:  "Milestone Reached",
			Body:   fmt.Sprintf("Your %s goal is %d%% funded", goal.Name, int(crossed*100)),
			GoalID: goal.ID,
		}); err != nil {
			return fmt.Errorf("notify milestone: %w", err)
		}
	}

	return nil
}

// HandleGoalCompleted emits the completion notification.
func (w *NotifyWorker) HandleGoalCompleted(ctx context.Context, msg *amqp.GoalCompletedMessage) error {
	slog.InfoContext(ctx, "Processing goal completed event",
		"goal_id", msg.GoalID,
		"goal_name", msg.GoalName)

	target := core.Money{Cents: msg.TargetCents}
	return w.notifier.Notify(ctx, Notification{
		Type:   NotificationCompleted,
		Title:  "Goal Achieved!",
		Body:   fmt.Sprintf("Congratulations! You saved $%s and reached your %s goal", target, msg.GoalName),
		GoalID: msg.GoalID,
	})
}

// crossedMilestone returns the highest milestone the contribution crossed,
// comparing progress before and after the applied amount.
func crossedMilestone(goal core.Goal, appliedCents int64) (float64, bool) {
	if goal.Target.Cents <= 0 {
		return 0, false
	}
	after := goal.Progress()
	before := float64(goal.Saved.Cents-appliedCents) / float64(goal.Target.Cents)

	var crossed float64
	found := false
	for _, m := range milestones {
		if before < m && after >= m {
			crossed = m
			found = true
		}
	}
	return crossed, found
}
