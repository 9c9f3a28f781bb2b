// Package memory provides an in-memory transaction feed used in development
// and in tests. The sample data mirrors what a bank aggregator returns for a
// freshly linked account.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"roundup/internal/core"
	"roundup/internal/feed"
)

type Store struct {
	mu           sync.Mutex
	accounts     []feed.Account
	institutions []feed.Institution
	categories   []string
	txns         []core.Transaction
}

func New(accounts []feed.Account, txns []core.Transaction) *Store {
	return &Store{
		accounts:     accounts,
		institutions: defaultInstitutions(),
		categories:   defaultCategories(),
		txns:         txns,
	}
}

// NewWithSampleData returns a store preloaded with two linked accounts and a
// handful of recent card transactions.
func NewWithSampleData() *Store {
	accounts := []feed.Account{
		{ID: "bank_1", Name: "Chase Bank", Institution: "Chase", Type: "checking", Mask: "1234", BalanceCents: 254789},
		{ID: "bank_2", Name: "Bank of America", Institution: "Bank of America", Type: "savings", Mask: "5678", BalanceCents: 1250000},
	}
	txns := []core.Transaction{
		{ID: "txn_1", AccountID: "bank_1", Merchant: "Starbucks", Amount: core.Money{Cents: 525}, Category: "food", Date: date(2024, 8, 5)},
		{ID: "txn_2", AccountID: "bank_1", Merchant: "Target", Amount: core.Money{Cents: 8999}, Category: "shopping", Date: date(2024, 8, 4)},
		{ID: "txn_3", AccountID: "bank_1", Merchant: "Uber", Amount: core.Money{Cents: 1550}, Category: "transportation", Date: date(2024, 8, 3)},
	}
	return New(accounts, txns)
}

// ListTransactions returns transactions newest first, optionally filtered by
// account.
func (s *Store) ListTransactions(_ context.Context, accountID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Transaction, 0, len(s.txns))
	for _, t := range s.txns {
		if accountID != "" && t.AccountID != accountID {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]feed.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]feed.Account(nil), s.accounts...), nil
}

// List returns the transaction categories the feed tags purchases with.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.categories...), nil
}

func (s *Store) ListInstitutions(_ context.Context) ([]feed.Institution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]feed.Institution(nil), s.institutions...), nil
}

// AddTransaction appends a transaction to the feed. Used by tests to simulate
// new bank activity arriving between sync runs.
func (s *Store) AddTransaction(t core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, t)
}

// Accounts returns the linked accounts without copying.
func (s *Store) Accounts() []feed.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts
}

// Len returns the number of transactions in the feed.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

func defaultCategories() []string {
	return []string{
		"food", "shopping", "transportation", "entertainment", "health",
		"education", "home", "technology", "travel", "other",
	}
}

func defaultInstitutions() []feed.Institution {
	return []feed.Institution{
		{ID: "chase", Name: "Chase Bank"},
		{ID: "bofa", Name: "Bank of America"},
		{ID: "wells", Name: "Wells Fargo"},
		{ID: "citi", Name: "Citibank"},
		{ID: "usaa", Name: "USAA"},
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
