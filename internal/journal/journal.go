// Package journal keeps a local append-only record of logged expenses,
// written by the audit worker from the event stream.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"expensebot/internal/events"
	applog "expensebot/internal/log"
)

type Repository struct {
	db  *sql.DB
	log *applog.Logger
}

// Entry is one journaled expense.
type Entry struct {
	ID       int64
	UserID   string
	SheetID  string
	Category string
	Amount   string
	LoggedAt string
}

func NewRepository(dbPath string, logger *applog.Logger) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, log: logger.WithComponent(applog.ComponentJournal)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record appends one event to the journal.
func (r *Repository) Record(ctx context.Context, ev events.ExpenseLogged) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_log (user_id, sheet_id, category, amount, logged_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.UserID, ev.SheetID, ev.Category, ev.Amount, ev.LoggedAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("insert journal entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal entry id: %w", err)
	}

	r.log.InfoContext(ctx, "expense journaled",
		"id", id,
		applog.FieldUserID, ev.UserID,
		applog.FieldCategory, ev.Category,
		applog.FieldAmount, ev.Amount)
	return id, nil
}

// RecentForUser returns the newest entries for a user, newest first.
func (r *Repository) RecentForUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, sheet_id, category, amount, logged_at
		 FROM expense_log WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.SheetID, &e.Category, &e.Amount, &e.LoggedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
