package memory

import (
	"context"
	"testing"
	"time"

	"roundup/internal/core"
)

func TestSampleDataListsNewestFirst(t *testing.T) {
	s := NewWithSampleData()

	txns, err := s.ListTransactions(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txns))
	}
	for i := 1; i < len(txns); i++ {
		if txns[i].Date.After(txns[i-1].Date) {
			t.Fatalf("transactions not newest first: %v before %v", txns[i-1].Date, txns[i].Date)
		}
	}
}

func TestAccountFilter(t *testing.T) {
	s := NewWithSampleData()
	s.AddTransaction(core.Transaction{
		ID:        "txn_other",
		AccountID: "bank_2",
		Merchant:  "Whole Foods",
		Amount:    core.Money{Cents: 6732},
		Category:  "food",
		Date:      time.Date(2024, 8, 6, 0, 0, 0, 0, time.UTC),
	})

	txns, err := s.ListTransactions(context.Background(), "bank_2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 1 || txns[0].ID != "txn_other" {
		t.Fatalf("unexpected filter result: %+v", txns)
	}
}

func TestCategoriesAndInstitutions(t *testing.T) {
	s := NewWithSampleData()

	cats, err := s.List(context.Background())
	if err != nil || len(cats) == 0 {
		t.Fatalf("unexpected categories: %v err=%v", cats, err)
	}

	insts, err := s.ListInstitutions(context.Background())
	if err != nil || len(insts) == 0 {
		t.Fatalf("unexpected institutions: %v err=%v", insts, err)
	}

	accounts, err := s.ListAccounts(context.Background())
	if err != nil || len(accounts) != 2 {
		t.Fatalf("unexpected accounts: %v err=%v", accounts, err)
	}
}
