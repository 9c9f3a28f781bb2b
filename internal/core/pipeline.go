package core

import "time"

// RoundupResult is the outcome of running a purchase through the round-up
// pipeline. Contribution is nil when the round-up was zero or the goal had
// no room; the transaction is returned unchanged in that case.
type RoundupResult struct {
	Transaction  Transaction
	Goal         Goal
	Contribution *Contribution
	Overflow     Money
}

// ProcessRoundup composes ComputeRoundup and ApplyContribution for the
// common "round up this purchase into this goal" flow.
//
// A zero round-up (whole-unit purchase) is a valid no-op, not an error.
// Overflow is reported for the caller's policy decision; the engine takes
// no position on its disposition.
func ProcessRoundup(txn Transaction, goal Goal, cfg RoundupConfig, now time.Time) (RoundupResult, error) {
	amount, err := ComputeRoundup(txn.Amount, cfg)
	if err != nil {
		return RoundupResult{}, err
	}
	if amount.IsZero() {
		return RoundupResult{Transaction: txn, Goal: goal}, nil
	}

	alloc, err := ApplyContribution(goal, amount, now)
	if err != nil {
		return RoundupResult{}, err
	}

	updated := txn
	if alloc.Contribution != nil {
		alloc.Contribution.TransactionID = txn.ID
		updated.Roundup = alloc.Contribution.Amount
		updated.LinkedGoalID = goal.ID
	} else {
		updated.Roundup = Money{}
		updated.LinkedGoalID = ""
	}

	return RoundupResult{
		Transaction:  updated,
		Goal:         alloc.Goal,
		Contribution: alloc.Contribution,
		Overflow:     alloc.Overflow,
	}, nil
}
