// Response envelopes and domain-to-JSON mapping.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"roundup/internal/core"
	"roundup/internal/services"
	"roundup/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

type goalResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category,omitempty"`
	TargetCents int64   `json:"target_cents"`
	SavedCents  int64   `json:"saved_cents"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	Deadline    string  `json:"deadline,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type transactionResponse struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	Merchant     string `json:"merchant"`
	AmountCents  int64  `json:"amount_cents"`
	Category     string `json:"category,omitempty"`
	Date         string `json:"date"`
	RoundupCents int64  `json:"roundup_cents"`
	LinkedGoalID string `json:"linked_goal_id,omitempty"`
}

type contributionResponse struct {
	ID            string `json:"id"`
	GoalID        string `json:"goal_id"`
	TransactionID string `json:"transaction_id,omitempty"`
	AmountCents   int64  `json:"amount_cents"`
	CreatedAt     string `json:"created_at"`
}

type statsResponse struct {
	TotalSavedCents    int64 `json:"total_saved_cents"`
	TotalTargetCents   int64 `json:"total_target_cents"`
	ActiveGoals        int   `json:"active_goals"`
	CompletedGoals     int   `json:"completed_goals"`
	TotalRoundupCents  int64 `json:"total_roundup_cents"`
	Transactions       int   `json:"transactions"`
	WithRoundup        int   `json:"transactions_with_roundup"`
	AverageRoundupCent int64 `json:"average_roundup_cents"`
}

func toGoalResponse(g core.Goal) goalResponse {
	resp := goalResponse{
		ID:          g.ID,
		Name:        g.Name,
		Category:    g.Category,
		TargetCents: g.Target.Cents,
		SavedCents:  g.Saved.Cents,
		Status:      string(g.Status),
		Progress:    g.Progress(),
		CreatedAt:   g.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   g.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !g.Deadline.IsZero() {
		resp.Deadline = g.Deadline.UTC().Format(time.RFC3339)
	}
	return resp
}

func toGoalResponses(goals []core.Goal) []goalResponse {
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	return out
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Merchant:     t.Merchant,
		AmountCents:  t.Amount.Cents,
		Category:     t.Category,
		Date:         t.Date.UTC().Format(time.RFC3339),
		RoundupCents: t.Roundup.Cents,
		LinkedGoalID: t.LinkedGoalID,
	}
}

func toContributionResponse(c core.Contribution) contributionResponse {
	return contributionResponse{
		ID:            c.ID,
		GoalID:        c.GoalID,
		TransactionID: c.TransactionID,
		AmountCents:   c.Amount.Cents,
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps engine and storage errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrGoalNotFound), errors.Is(err, core.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrUnsupportedRoundupMethod),
		errors.Is(err, core.ErrEmptyName):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrGoalNotActive), errors.Is(err, core.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAlreadyApplied):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, "concurrent update, retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
