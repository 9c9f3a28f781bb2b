package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"roundup/internal/core"
	ports "roundup/internal/feed"

	"golang.org/x/oauth2"
	gauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads bank transaction exports from a Google Spreadsheet. The
// spreadsheet stands in for a real aggregator API: one sheet per concern,
// transactions appended newest last.
type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	accountsSheet     string
	categoriesSheet   string
	institutionsSheet string
}

// Ensure interface conformance
var (
	_ ports.TransactionReader = (*Client)(nil)
	_ ports.AccountReader     = (*Client)(nil)
	_ ports.CategoryReader    = (*Client)(nil)
	_ ports.InstitutionReader = (*Client)(nil)
)

// NewFromEnv creates a Sheets feed using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional sheet names: GOOGLE_FEED_SHEET_NAME (default "Transactions"),
// GOOGLE_ACCOUNTS_SHEET_NAME (default "Accounts"),
// GOOGLE_CATEGORIES_SHEET_NAME (default "Categories"),
// GOOGLE_INSTITUTIONS_SHEET_NAME (default "Institutions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	transactions, accounts, categories, institutions := sheetNamesFromEnv()
	return &Client{
		svc:               svc,
		spreadsheetID:     spreadsheetID,
		transactionsSheet: transactions,
		accountsSheet:     accounts,
		categoriesSheet:   categories,
		institutionsSheet: institutions,
	}, nil
}

// sheetNamesFromEnv resolves the tab names inside the spreadsheet, falling
// back to the default export layout.
func sheetNamesFromEnv() (transactions, accounts, categories, institutions string) {
	return envOrDefault("GOOGLE_FEED_SHEET_NAME", "Transactions"),
		envOrDefault("GOOGLE_ACCOUNTS_SHEET_NAME", "Accounts"),
		envOrDefault("GOOGLE_CATEGORIES_SHEET_NAME", "Categories"),
		envOrDefault("GOOGLE_INSTITUTIONS_SHEET_NAME", "Institutions")
}

// newSheetsService initializes a Sheets Service. Service Account credentials
// take precedence (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS); otherwise an OAuth client config and a
// stored token are used (GOOGLE_OAUTH_CLIENT_JSON/FILE plus
// GOOGLE_OAUTH_TOKEN_JSON/FILE, the token produced by the oauth-init command).
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	if credentialsJSON, ok := serviceAccountCredentials(); ok {
		slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(credentialsJSON),
			"scope", gsheet.SpreadsheetsReadonlyScope)

		service, err := gsheet.NewService(ctx,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	ts, err := oauthTokenSource(ctx)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token",
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, bool) {
	if v := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); v != "" {
		return []byte(v), true
	}
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, false
	}
	b, err := os.ReadFile(file)
	if err != nil {
		slog.Warn("Failed to read service account file", "path", file, "error", err)
		return nil, false
	}
	return b, true
}

// oauthTokenSource builds a refreshing token source from the OAuth client
// config and the stored user token.
func oauthTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	clientJSON, err := readEnvJSON("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	if clientJSON == nil {
		return nil, errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON/FILE or GOOGLE_OAUTH_CLIENT_JSON/FILE)")
	}

	cfg, err := gauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client config: %w", err)
	}

	tokenJSON, err := readEnvJSON("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, errors.New("missing OAuth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE, or run oauth-init)")
	}

	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse OAuth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), nil
}

// readEnvJSON returns the inline JSON value if set, otherwise the contents of
// the file named by fileKey. Nil with no error means neither is set.
func readEnvJSON(jsonKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(jsonKey)); v != "" {
		return []byte(v), nil
	}
	file := strings.TrimSpace(os.Getenv(fileKey))
	if file == "" {
		return nil, nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return b, nil
}

// ListTransactions reads the transactions sheet and returns the rows as
// transactions, newest first. An empty accountID returns every account.
func (c *Client) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:F", c.transactionsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	txns, err := parseTransactionRows(resp.Values)
	if err != nil {
		return nil, err
	}
	if accountID == "" {
		return txns, nil
	}
	out := txns[:0]
	for _, t := range txns {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]ports.Account, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:F", c.accountsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseAccountRows(resp.Values), nil
}

// List returns transaction categories from the categories sheet.
func (c *Client) List(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	cats, err := c.readCol(ctx, c.categoriesSheet, "A2:A200")
	if err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return cats, nil
}

func (c *Client) ListInstitutions(ctx context.Context) ([]ports.Institution, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:B200", c.institutionsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []ports.Institution
	for _, row := range resp.Values {
		cols := toStrings(row)
		id := safeGet(cols, 0)
		name := safeGet(cols, 1)
		if id == "" || name == "" {
			continue
		}
		out = append(out, ports.Institution{ID: id, Name: name})
	}
	return out, nil
}

func (c *Client) readCol(ctx context.Context, sheetName, col string) ([]string, error) {
	rng := fmt.Sprintf("%s!%s", sheetName, col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []string
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		out = append(out, v)
	}
	// Dedup while preserving order
	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(out))
	for _, v := range out {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		uniq = append(uniq, v)
	}
	return uniq, nil
}

func envOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
