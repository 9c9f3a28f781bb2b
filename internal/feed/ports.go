package feed

import (
	"context"

	"roundup/internal/core"
)

// Account is a linked bank account as reported by the transaction feed.
// Accounts are feed-side data; they are never persisted locally.
type Account struct {
	ID           string
	Name         string
	Institution  string
	Type         string // checking, savings, credit
	Mask         string // last four digits, display only
	BalanceCents int64
}

// Institution is a bank the feed can link accounts from.
type Institution struct {
	ID   string
	Name string
}

// Ports for inbound transaction data.
type (
	TransactionReader interface {
		// ListTransactions returns the feed's view of an account's
		// transactions, newest first. An empty accountID means all accounts.
		ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error)
	}

	AccountReader interface {
		ListAccounts(ctx context.Context) ([]Account, error)
	}

	CategoryReader interface {
		List(ctx context.Context) (categories []string, err error)
	}

	InstitutionReader interface {
		ListInstitutions(ctx context.Context) ([]Institution, error)
	}
)

// Feed is the full surface a transaction source must provide.
type Feed interface {
	TransactionReader
	AccountReader
	CategoryReader
	InstitutionReader
}
