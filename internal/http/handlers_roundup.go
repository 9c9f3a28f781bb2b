// Round-up processing, settings, sync and read-side handlers.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"roundup/internal/core"
)

type processRoundupRequest struct {
	TransactionID string `json:"transaction_id"`
	GoalID        string `json:"goal_id"`
	// OverflowGoalID optionally receives overflow the primary goal
	// could not absorb.
	OverflowGoalID string `json:"overflow_goal_id"`
}

type roundupSettings struct {
	Method          string `json:"method"`
	MultipleCents   int64  `json:"multiple_cents,omitempty"`
	FixedCents      int64  `json:"fixed_cents,omitempty"`
	RateBasisPoints int64  `json:"rate_basis_points,omitempty"`
}

type syncRequest struct {
	AccountID string `json:"account_id"`
}

const statsCacheKey = "stats:overview"

func (s *Server) handleProcessRoundup(w http.ResponseWriter, r *http.Request) {
	var req processRoundupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.TransactionID) == "" || strings.TrimSpace(req.GoalID) == "" {
		writeError(w, http.StatusUnprocessableEntity, "transaction_id and goal_id are required")
		return
	}

	outcome, err := s.roundups.ProcessTransaction(r.Context(), req.TransactionID, req.GoalID, req.OverflowGoalID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReadCaches()

	resp := struct {
		Transaction          transactionResponse   `json:"transaction"`
		Goal                 goalResponse          `json:"goal"`
		Contribution         *contributionResponse `json:"contribution"`
		OverflowCents        int64                 `json:"overflow_cents"`
		OverflowContribution *contributionResponse `json:"overflow_contribution,omitempty"`
	}{
		Transaction:   toTransactionResponse(outcome.Result.Transaction),
		Goal:          toGoalResponse(outcome.Result.Goal),
		OverflowCents: outcome.Result.Overflow.Cents,
	}
	if outcome.Result.Contribution != nil {
		c := toContributionResponse(*outcome.Result.Contribution)
		resp.Contribution = &c
	}
	if outcome.OverflowContribution != nil {
		c := toContributionResponse(*outcome.OverflowContribution)
		resp.OverflowContribution = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRoundupSettings(w http.ResponseWriter, r *http.Request) {
	cfg := s.roundups.Settings()
	writeJSON(w, http.StatusOK, roundupSettings{
		Method:          string(cfg.Method),
		MultipleCents:   cfg.MultipleCents,
		FixedCents:      cfg.FixedCents,
		RateBasisPoints: cfg.RateBasisPoints,
	})
}

func (s *Server) handleUpdateRoundupSettings(w http.ResponseWriter, r *http.Request) {
	var req roundupSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := core.RoundupConfig{
		Method:          core.RoundupMethod(req.Method),
		MultipleCents:   req.MultipleCents,
		FixedCents:      req.FixedCents,
		RateBasisPoints: req.RateBasisPoints,
	}
	if err := s.roundups.UpdateSettings(cfg); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Round-up settings updated", "method", req.Method)
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	txns, err := s.goals.ListStoredTransactions(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions error", "error", err)
		writeDomainError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.Body != nil {
		// Body is optional; an empty body syncs every account.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	report, err := s.feedSync.Sync(r.Context(), req.AccountID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Feed sync error", "error", err, "account_id", req.AccountID)
		writeError(w, http.StatusBadGateway, "feed sync failed")
		return
	}

	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, struct {
		Fetched int `json:"fetched"`
		New     int `json:"new"`
		Total   int `json:"total"`
	}{report.Fetched, report.New, report.Total})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if stats, found := s.statsCache.Get(statsCacheKey); found {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	overview, roundups, err := s.goals.Stats(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Stats error", "error", err)
		writeDomainError(w, err)
		return
	}

	stats := statsResponse{
		TotalSavedCents:    overview.TotalSaved.Cents,
		TotalTargetCents:   overview.TotalTarget.Cents,
		ActiveGoals:        overview.ActiveGoals,
		CompletedGoals:     overview.Completed,
		TotalRoundupCents:  roundups.TotalRoundups.Cents,
		Transactions:       roundups.Transactions,
		WithRoundup:        roundups.WithRoundup,
		AverageRoundupCent: roundups.Average.Cents,
	}
	s.statsCache.Set(statsCacheKey, stats)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.feedSource.ListAccounts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List accounts error", "error", err)
		writeError(w, http.StatusBadGateway, "feed unavailable")
		return
	}
	type accountResponse struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Institution  string `json:"institution"`
		Type         string `json:"type"`
		Mask         string `json:"mask"`
		BalanceCents int64  `json:"balance_cents"`
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{a.ID, a.Name, a.Institution, a.Type, a.Mask, a.BalanceCents})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.feedSource.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories error", "error", err)
		writeError(w, http.StatusBadGateway, "feed unavailable")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleListInstitutions(w http.ResponseWriter, r *http.Request) {
	insts, err := s.feedSource.ListInstitutions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List institutions error", "error", err)
		writeError(w, http.StatusBadGateway, "feed unavailable")
		return
	}
	type institutionResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]institutionResponse, 0, len(insts))
	for _, i := range insts {
		out = append(out, institutionResponse{i.ID, i.Name})
	}
	writeJSON(w, http.StatusOK, out)
}
