package amqp

import (
	"encoding/json"
	"time"
)

// Message types carried in the AMQP Type property, used by consumers to
// dispatch deliveries from the shared event queue.
const (
	TypeContributionApplied = "contribution.applied"
	TypeGoalCompleted       = "goal.completed"
)

// ContributionAppliedMessage announces that a round-up or manual deposit
// was applied to a goal. Carries ids plus the applied amounts; consumers
// fetch full records from the database when they need more.
type ContributionAppliedMessage struct {
	ContributionID string    `json:"contribution_id"`
	GoalID         string    `json:"goal_id"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	OverflowCents  int64     `json:"overflow_cents"`
	GoalCompleted  bool      `json:"goal_completed"`
	Timestamp      time.Time `json:"timestamp"`
}

// GoalCompletedMessage announces that a goal reached its target.
type GoalCompletedMessage struct {
	GoalID      string    `json:"goal_id"`
	GoalName    string    `json:"goal_name"`
	TargetCents int64     `json:"target_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *ContributionAppliedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ContributionAppliedFromJSON creates a message from JSON bytes
func ContributionAppliedFromJSON(data []byte) (*ContributionAppliedMessage, error) {
	var msg ContributionAppliedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToJSON converts the message to JSON bytes
func (m *GoalCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// GoalCompletedFromJSON creates a message from JSON bytes
func GoalCompletedFromJSON(data []byte) (*GoalCompletedMessage, error) {
	var msg GoalCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
