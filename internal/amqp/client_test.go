package amqp

import (
	"testing"
	"time"
)

func TestContributionAppliedMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 8, 5, 10, 30, 0, 0, time.UTC)
	msg := &ContributionAppliedMessage{
		ContributionID: "contrib_1",
		GoalID:         "goal_1",
		TransactionID:  "txn_1",
		AmountCents:    25,
		OverflowCents:  15,
		GoalCompleted:  true,
		Timestamp:      timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ContributionAppliedFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ContributionAppliedFromJSON() error = %v", err)
	}

	if parsed.ContributionID != msg.ContributionID || parsed.GoalID != msg.GoalID {
		t.Errorf("parsed ids = %v/%v, want %v/%v", parsed.ContributionID, parsed.GoalID, msg.ContributionID, msg.GoalID)
	}
	if parsed.AmountCents != 25 || parsed.OverflowCents != 15 || !parsed.GoalCompleted {
		t.Errorf("parsed amounts = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(timestamp) {
		t.Errorf("parsed timestamp = %v, want %v", parsed.Timestamp, timestamp)
	}
}

func TestContributionAppliedMessage_OmitsEmptyTransaction(t *testing.T) {
	msg := &ContributionAppliedMessage{
		ContributionID: "contrib_1",
		GoalID:         "goal_1",
		AmountCents:    10000,
	}
	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	// Manual contributions carry no transaction id on the wire.
	if string(jsonBytes) != `{"contribution_id":"contrib_1","goal_id":"goal_1","amount_cents":10000,"overflow_cents":0,"goal_completed":false,"timestamp":"0001-01-01T00:00:00Z"}` {
		t.Errorf("unexpected wire format: %s", jsonBytes)
	}
}

func TestMessageFromInvalidJSON(t *testing.T) {
	invalid := []byte(`{"amount_cents": "not_a_number"}`)
	if _, err := ContributionAppliedFromJSON(invalid); err == nil {
		t.Error("ContributionAppliedFromJSON() should fail with invalid JSON")
	}
	if _, err := GoalCompletedFromJSON([]byte(`{`)); err == nil {
		t.Error("GoalCompletedFromJSON() should fail with truncated JSON")
	}
}
