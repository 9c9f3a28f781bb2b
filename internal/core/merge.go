package core

import "sort"

// MergeTransactionFeeds combines a locally stored transaction list with a
// freshly synced remote (bank-sourced) list, de-duplicating by id.
//
// The remote record is authoritative for amount, date, merchant, category
// and account. Round-up state (Roundup, LinkedGoalID) is computed by the
// engine and never carried by the bank feed, so the local values are
// preserved whenever the remote record lacks them.
//
// The result is ordered most-recent-first; ties keep insertion order
// (local first, then remote), so repeated merges of the same inputs are
// stable and idempotent.
func MergeTransactionFeeds(local, remote []Transaction) []Transaction {
	merged := make([]Transaction, 0, len(local)+len(remote))
	index := make(map[string]int, len(local))

	for _, t := range local {
		if i, ok := index[t.ID]; ok {
			merged[i] = mergeRecords(merged[i], t)
			continue
		}
		index[t.ID] = len(merged)
		merged = append(merged, t)
	}
	for _, t := range remote {
		if i, ok := index[t.ID]; ok {
			merged[i] = mergeRecords(merged[i], t)
			continue
		}
		index[t.ID] = len(merged)
		merged = append(merged, t)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return merged
}

// mergeRecords resolves a duplicate id: the incoming (remote) record wins
// for bank-owned fields, the existing record keeps round-up state the
// incoming one lacks.
func mergeRecords(existing, incoming Transaction) Transaction {
	out := incoming
	if out.Roundup.IsZero() && !existing.Roundup.IsZero() {
		out.Roundup = existing.Roundup
	}
	if out.LinkedGoalID == "" && existing.LinkedGoalID != "" {
		out.LinkedGoalID = existing.LinkedGoalID
	}
	return out
}
