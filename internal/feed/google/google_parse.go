package google

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"roundup/internal/core"
	ports "roundup/internal/feed"
)

// parseTransactionRows converts a values matrix (as returned by the Sheets
// API) into transactions, newest first. Expected columns:
// Date (YYYY-MM-DD), ID, Account, Merchant, Amount, Category.
// Header rows and rows without a parseable date or amount are skipped.
func parseTransactionRows(values [][]interface{}) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) < 5 {
			continue
		}
		date, err := time.Parse("2006-01-02", safeGet(cols, 0))
		if err != nil {
			// Header or malformed row
			continue
		}
		id := safeGet(cols, 1)
		if id == "" {
			continue
		}
		cents, ok := parseAmountToCents(safeGet(cols, 4))
		if !ok || cents < 0 {
			continue
		}
		out = append(out, core.Transaction{
			ID:        id,
			AccountID: safeGet(cols, 2),
			Merchant:  safeGet(cols, 3),
			Amount:    core.Money{Cents: cents},
			Category:  safeGet(cols, 5),
			Date:      date,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// parseAccountRows converts account rows. Expected columns:
// ID, Name, Institution, Type, Mask, Balance.
func parseAccountRows(values [][]interface{}) []ports.Account {
	var out []ports.Account
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) < 2 {
			continue
		}
		id := safeGet(cols, 0)
		if id == "" || strings.EqualFold(id, "id") {
			continue
		}
		balance, _ := parseAmountToCents(safeGet(cols, 5))
		out = append(out, ports.Account{
			ID:           id,
			Name:         safeGet(cols, 1),
			Institution:  safeGet(cols, 2),
			Type:         safeGet(cols, 3),
			Mask:         safeGet(cols, 4),
			BalanceCents: balance,
		})
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		// Sheets returns numbers as float64; render them without exponent.
		if f, ok := v.(float64); ok {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseAmountToCents parses a decimal amount (dot or comma separator) into
// integer cents through the engine's decimal parser, so a feed value rounds
// exactly like the same value arriving over the API. A leading minus marks
// feed credits.
func parseAmountToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	cents, err := core.ParseDecimalToCents(strings.TrimPrefix(s, "-"))
	if err != nil {
		return 0, false
	}
	if neg {
		return -cents, true
	}
	return cents, true
}
