// Goal lifecycle and contribution handlers.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"roundup/internal/core"
)

type createGoalRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	// Target is a decimal amount string, e.g. "500.00".
	Target string `json:"target"`
	// Deadline is optional, YYYY-MM-DD or RFC3339.
	Deadline string `json:"deadline"`
}

type contributionRequest struct {
	// Amount is a decimal amount string, e.g. "12.50".
	Amount string `json:"amount"`
}

const goalsCacheKey = "goals:list"

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := core.ParseMoney(req.Target)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid target amount")
		return
	}

	var deadline time.Time
	if req.Deadline != "" {
		deadline, err = parseDeadline(req.Deadline)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid deadline")
			return
		}
	}

	goal, err := s.goals.CreateGoal(r.Context(), req.Name, req.Category, target, deadline)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReadCaches()
	writeJSON(w, http.StatusCreated, toGoalResponse(goal))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	if goals, found := s.goalsCache.Get(goalsCacheKey); found {
		slog.DebugContext(r.Context(), "Goals cache hit", "count", len(goals))
		writeJSON(w, http.StatusOK, toGoalResponses(goals))
		return
	}

	goals, err := s.goals.ListGoals(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List goals error", "error", err)
		writeDomainError(w, err)
		return
	}

	s.goalsCache.Set(goalsCacheKey, goals)
	writeJSON(w, http.StatusOK, toGoalResponses(goals))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.goals.GetGoal(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleArchiveGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.goals.ArchiveGoal(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleReopenGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.goals.ReopenGoal(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	contribs, err := s.goals.ListContributions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]contributionResponse, 0, len(contribs))
	for _, c := range contribs {
		out = append(out, toContributionResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateContribution applies a manual deposit to a goal.
func (s *Server) handleCreateContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	alloc, err := s.roundups.Contribute(r.Context(), r.PathValue("id"), amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReadCaches()

	resp := struct {
		Goal          goalResponse          `json:"goal"`
		Contribution  *contributionResponse `json:"contribution"`
		OverflowCents int64                 `json:"overflow_cents"`
	}{
		Goal:          toGoalResponse(alloc.Goal),
		OverflowCents: alloc.Overflow.Cents,
	}
	if alloc.Contribution != nil {
		c := toContributionResponse(*alloc.Contribution)
		resp.Contribution = &c
	}
	writeJSON(w, http.StatusCreated, resp)
}

// parseDeadline accepts a date or a full timestamp.
func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
