// Package storage persists goals, transactions and contributions in SQLite.
//
// The repository owns no computation: the engine in internal/core produces
// updated records and the repository writes them. Goal updates use a
// compare-and-swap on saved_cents so two concurrent contributions to the
// same goal cannot both read the same room and overshoot the target.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"roundup/internal/core"

	_ "modernc.org/sqlite"
)

// ErrConflict is returned when a compare-and-swap goal update lost the race.
var ErrConflict = errors.New("goal was modified concurrently")

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Goals ---

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("validate goal: %w", err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, name, category, target_cents, saved_cents, status, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Category, g.Target.Cents, g.Saved.Cents, string(g.Status),
		nullableTime(g.Deadline), g.CreatedAt.UTC().Format(timeLayout), g.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved to SQLite",
		"goal_id", g.ID,
		"name", g.Name,
		"target_cents", g.Target.Cents)

	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, category, target_cents, saved_cents, status, deadline, created_at, updated_at
		FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrGoalNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %s: %w", id, err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, category, target_cents, saved_cents, status, deadline, created_at, updated_at
		FROM goals ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := make([]core.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdateGoal writes an updated goal record. expectedSavedCents is the saved
// amount the caller read before computing the update; if the stored value no
// longer matches, the update is rejected with ErrConflict and the caller
// should re-read and retry.
func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal, expectedSavedCents int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET name = ?, category = ?, target_cents = ?, saved_cents = ?, status = ?, deadline = ?, updated_at = ?
		WHERE id = ? AND saved_cents = ?`,
		g.Name, g.Category, g.Target.Cents, g.Saved.Cents, string(g.Status),
		nullableTime(g.Deadline), g.UpdatedAt.UTC().Format(timeLayout),
		g.ID, expectedSavedCents)
	if err != nil {
		return fmt.Errorf("update goal %s: %w", g.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update goal %s: rows affected: %w", g.ID, err)
	}
	if affected == 0 {
		// Either the goal vanished or the CAS lost. Distinguish for the caller.
		if _, err := r.GetGoal(ctx, g.ID); errors.Is(err, core.ErrGoalNotFound) {
			return core.ErrGoalNotFound
		}
		return ErrConflict
	}
	return nil
}

// --- Transactions ---

func (r *SQLiteRepository) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, merchant, amount_cents, category, date, roundup_cents, linked_goal_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			account_id = excluded.account_id,
			merchant = excluded.merchant,
			amount_cents = excluded.amount_cents,
			category = excluded.category,
			date = excluded.date,
			roundup_cents = excluded.roundup_cents,
			linked_goal_id = excluded.linked_goal_id`,
		t.ID, t.AccountID, t.Merchant, t.Amount.Cents, t.Category,
		t.Date.UTC().Format(timeLayout), t.Roundup.Cents, nullableString(t.LinkedGoalID))
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, merchant, amount_cents, category, date, roundup_cents, linked_goal_id
		FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

// ListTransactions returns transactions most-recent-first, matching the
// display order the feed merge produces. limit <= 0 returns everything.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	query := `
		SELECT id, account_id, merchant, amount_cents, category, date, roundup_cents, linked_goal_id
		FROM transactions ORDER BY date DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// --- Contributions ---

func (r *SQLiteRepository) ListContributions(ctx context.Context, goalID string) ([]core.Contribution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, goal_id, transaction_id, amount_cents, created_at
		FROM contributions WHERE goal_id = ? ORDER BY created_at DESC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list contributions for goal %s: %w", goalID, err)
	}
	defer rows.Close()

	contribs := make([]core.Contribution, 0)
	for rows.Next() {
		var c core.Contribution
		var txnID sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.GoalID, &txnID, &c.Amount.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		c.TransactionID = txnID.String
		c.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse contribution time: %w", err)
		}
		contribs = append(contribs, c)
	}
	return contribs, rows.Err()
}

// ApplyAllocation persists the outcome of a round-up pipeline run in one
// transaction: the goal CAS update, the linked transaction record and the
// contribution, together or not at all.
func (r *SQLiteRepository) ApplyAllocation(ctx context.Context, res core.RoundupResult, expectedSavedCents int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allocation tx: %w", err)
	}
	defer tx.Rollback()

	upd, err := tx.ExecContext(ctx, `
		UPDATE goals SET saved_cents = ?, status = ?, updated_at = ?
		WHERE id = ? AND saved_cents = ?`,
		res.Goal.Saved.Cents, string(res.Goal.Status),
		res.Goal.UpdatedAt.UTC().Format(timeLayout),
		res.Goal.ID, expectedSavedCents)
	if err != nil {
		return fmt.Errorf("update goal %s: %w", res.Goal.ID, err)
	}
	if affected, err := upd.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return ErrConflict
	}

	t := res.Transaction
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, merchant, amount_cents, category, date, roundup_cents, linked_goal_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			roundup_cents = excluded.roundup_cents,
			linked_goal_id = excluded.linked_goal_id`,
		t.ID, t.AccountID, t.Merchant, t.Amount.Cents, t.Category,
		t.Date.UTC().Format(timeLayout), t.Roundup.Cents, nullableString(t.LinkedGoalID)); err != nil {
		return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
	}

	c := res.Contribution
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO contributions (id, goal_id, transaction_id, amount_cents, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.GoalID, nullableString(c.TransactionID), c.Amount.Cents,
		c.CreatedAt.UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("create contribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit allocation: %w", err)
	}

	slog.InfoContext(ctx, "Allocation persisted",
		"goal_id", res.Goal.ID,
		"transaction_id", t.ID,
		"contribution_id", c.ID,
		"amount_cents", c.Amount.Cents,
		"saved_cents", res.Goal.Saved.Cents,
		"goal_status", string(res.Goal.Status))

	return nil
}

// SaveContribution persists a manual contribution outcome in one transaction:
// the goal CAS update and the contribution row, together or not at all. A nil
// contribution updates only the goal.
func (r *SQLiteRepository) SaveContribution(ctx context.Context, goal core.Goal, expectedSavedCents int64, c *core.Contribution) error {
	if c != nil {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("validate contribution: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin contribution tx: %w", err)
	}
	defer tx.Rollback()

	upd, err := tx.ExecContext(ctx, `
		UPDATE goals SET saved_cents = ?, status = ?, updated_at = ?
		WHERE id = ? AND saved_cents = ?`,
		goal.Saved.Cents, string(goal.Status),
		goal.UpdatedAt.UTC().Format(timeLayout),
		goal.ID, expectedSavedCents)
	if err != nil {
		return fmt.Errorf("update goal %s: %w", goal.ID, err)
	}
	if affected, err := upd.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		// Either the goal vanished or the CAS lost. Distinguish for the caller.
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals WHERE id = ?`, goal.ID).Scan(&n); err != nil {
			return fmt.Errorf("check goal %s: %w", goal.ID, err)
		}
		if n == 0 {
			return core.ErrGoalNotFound
		}
		return ErrConflict
	}

	if c != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO contributions (id, goal_id, transaction_id, amount_cents, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.GoalID, nullableString(c.TransactionID), c.Amount.Cents,
			c.CreatedAt.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("create contribution: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit contribution: %w", err)
	}

	slog.InfoContext(ctx, "Contribution persisted",
		"goal_id", goal.ID,
		"saved_cents", goal.Saved.Cents,
		"goal_status", string(goal.Status))

	return nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var g core.Goal
	var status string
	var deadline sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&g.ID, &g.Name, &g.Category, &g.Target.Cents, &g.Saved.Cents,
		&status, &deadline, &createdAt, &updatedAt)
	if err != nil {
		return core.Goal{}, err
	}
	g.Status = core.GoalStatus(status)
	if deadline.Valid && deadline.String != "" {
		if g.Deadline, err = time.Parse(timeLayout, deadline.String); err != nil {
			return core.Goal{}, fmt.Errorf("parse deadline: %w", err)
		}
	}
	if g.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Goal{}, fmt.Errorf("parse created_at: %w", err)
	}
	if g.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return core.Goal{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return g, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var date string
	var linkedGoal sql.NullString

	err := row.Scan(&t.ID, &t.AccountID, &t.Merchant, &t.Amount.Cents,
		&t.Category, &date, &t.Roundup.Cents, &linkedGoal)
	if err != nil {
		return core.Transaction{}, err
	}
	t.LinkedGoalID = linkedGoal.String
	if t.Date, err = time.Parse(timeLayout, date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	return t, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
