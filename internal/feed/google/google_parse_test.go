package google

import (
	"testing"
)

func TestParseTransactionRows(t *testing.T) {
	values := [][]interface{}{
		{"Date", "ID", "Account", "Merchant", "Amount", "Category"},
		{"2024-08-03", "txn_3", "bank_1", "Uber", 15.50, "transportation"},
		{"2024-08-05", "txn_1", "bank_1", "Starbucks", "5,25", "food"},
		{"2024-08-04", "txn_2", "bank_1", "Target", "89.99", "shopping"},
		{"not-a-date", "txn_bad", "bank_1", "Junk", "1.00", "other"},
		{"2024-08-02", "", "bank_1", "NoID", "3.00", "other"},
	}
	txns, err := parseTransactionRows(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("expected 3 transactions, got %d: %+v", len(txns), txns)
	}
	// Newest first
	if txns[0].ID != "txn_1" || txns[1].ID != "txn_2" || txns[2].ID != "txn_3" {
		t.Fatalf("unexpected order: %s %s %s", txns[0].ID, txns[1].ID, txns[2].ID)
	}
	if txns[0].Amount.Cents != 525 {
		t.Errorf("comma amount: got %d cents", txns[0].Amount.Cents)
	}
	if txns[1].Amount.Cents != 8999 {
		t.Errorf("dot amount: got %d cents", txns[1].Amount.Cents)
	}
	if txns[2].Amount.Cents != 1550 {
		t.Errorf("float amount: got %d cents", txns[2].Amount.Cents)
	}
	if txns[0].Merchant != "Starbucks" || txns[0].Category != "food" {
		t.Errorf("unexpected row: %+v", txns[0])
	}
}

func TestParseAccountRows(t *testing.T) {
	values := [][]interface{}{
		{"ID", "Name", "Institution", "Type", "Mask", "Balance"},
		{"bank_1", "Chase Bank", "Chase", "checking", "1234", "2547.89"},
		{"bank_2", "Bank of America", "Bank of America", "savings", "5678", 12500.00},
		{"", "Missing ID"},
	}
	accounts := parseAccountRows(values)
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].ID != "bank_1" || accounts[0].BalanceCents != 254789 {
		t.Errorf("unexpected account: %+v", accounts[0])
	}
	if accounts[1].Mask != "5678" || accounts[1].BalanceCents != 1250000 {
		t.Errorf("unexpected account: %+v", accounts[1])
	}
}

func TestSheetNamesFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_FEED_SHEET_NAME", "")
	t.Setenv("GOOGLE_ACCOUNTS_SHEET_NAME", "")
	t.Setenv("GOOGLE_CATEGORIES_SHEET_NAME", "")
	t.Setenv("GOOGLE_INSTITUTIONS_SHEET_NAME", "")

	transactions, accounts, categories, institutions := sheetNamesFromEnv()
	if transactions != "Transactions" || accounts != "Accounts" ||
		categories != "Categories" || institutions != "Institutions" {
		t.Fatalf("unexpected defaults: %s %s %s %s", transactions, accounts, categories, institutions)
	}

	t.Setenv("GOOGLE_FEED_SHEET_NAME", "BankFeed")
	transactions, _, _, _ = sheetNamesFromEnv()
	if transactions != "BankFeed" {
		t.Fatalf("GOOGLE_FEED_SHEET_NAME not honored, got %s", transactions)
	}
}

func TestParseAmountToCents(t *testing.T) {
	cases := []struct {
		in     string
		cents  int64
		wantOK bool
	}{
		{"4.75", 475, true},
		{"4,75", 475, true},
		{"100", 10000, true},
		{"0.005", 1, true},
		// Half-up on the third digit, matching core.ParseDecimalToCents
		// exactly (a binary-float path would yield 28 and 100 here).
		{"0.285", 29, true},
		{"1.005", 101, true},
		{"-5.25", -525, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseAmountToCents(tc.in)
		if ok != tc.wantOK || got != tc.cents {
			t.Errorf("parseAmountToCents(%q) = %d, %v; want %d, %v", tc.in, got, ok, tc.cents, tc.wantOK)
		}
	}
}
