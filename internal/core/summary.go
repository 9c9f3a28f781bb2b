package core

// RoundupStats summarizes round-up activity over a set of transactions.
type RoundupStats struct {
	TotalRoundups Money
	Transactions  int
	WithRoundup   int
	Average       Money // mean over transactions that produced a round-up
}

// SavingsOverview is a compact summary across a user's goal set.
type SavingsOverview struct {
	TotalSaved  Money
	TotalTarget Money
	ActiveGoals int
	Completed   int
}

// SummarizeRoundups aggregates round-up totals from a transaction list.
func SummarizeRoundups(txns []Transaction) RoundupStats {
	stats := RoundupStats{Transactions: len(txns)}
	for _, t := range txns {
		if t.Roundup.IsZero() {
			continue
		}
		stats.TotalRoundups = stats.TotalRoundups.Add(t.Roundup)
		stats.WithRoundup++
	}
	if stats.WithRoundup > 0 {
		stats.Average = Money{Cents: stats.TotalRoundups.Cents / int64(stats.WithRoundup)}
	}
	return stats
}

// SummarizeGoals aggregates saved and target totals across goals.
// Archived goals are excluded.
func SummarizeGoals(goals []Goal) SavingsOverview {
	var o SavingsOverview
	for _, g := range goals {
		switch g.Status {
		case GoalActive:
			o.ActiveGoals++
		case GoalCompleted:
			o.Completed++
		default:
			continue
		}
		o.TotalSaved = o.TotalSaved.Add(g.Saved)
		o.TotalTarget = o.TotalTarget.Add(g.Target)
	}
	return o
}
