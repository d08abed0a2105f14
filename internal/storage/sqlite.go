package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"soldi/internal/core"

	_ "modernc.org/sqlite"
)

const (
	settingSelectedMonth = "selected_month"
	settingVersion       = "version"
)

// SQLiteStore persists the snapshot in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load reads the whole snapshot. Rows that fail to parse are skipped with a
// warning rather than failing the load; missing settings keep defaults.
func (s *SQLiteStore) Load(ctx context.Context) (core.Snapshot, error) {
	snap := core.Snapshot{Budgets: make(map[core.MonthKey]map[string]core.Money)}

	if err := s.loadSettings(ctx, &snap); err != nil {
		return snap, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return snap, fmt.Errorf("scan category: %w", err)
		}
		snap.Categories = append(snap.Categories, name)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("load categories: %w", err)
	}

	if err := s.loadBudgets(ctx, &snap); err != nil {
		return snap, err
	}
	if err := s.loadTransactions(ctx, &snap); err != nil {
		return snap, err
	}
	if err := s.loadSavedItems(ctx, &snap); err != nil {
		return snap, err
	}

	return snap, nil
}

func (s *SQLiteStore) loadSettings(ctx context.Context, snap *core.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case settingSelectedMonth:
			month, err := core.ParseMonthKey(value)
			if err != nil {
				slog.WarnContext(ctx, "Ignoring unparseable selected month", "value", value)
				continue
			}
			snap.SelectedMonth = month
		case settingVersion:
			v, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				slog.WarnContext(ctx, "Ignoring unparseable version", "value", value)
				continue
			}
			snap.Version = v
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loadBudgets(ctx context.Context, snap *core.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT month, category, limit_cents FROM budgets`)
	if err != nil {
		return fmt.Errorf("load budgets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var month, category string
		var cents int64
		if err := rows.Scan(&month, &category, &cents); err != nil {
			return fmt.Errorf("scan budget: %w", err)
		}
		key, err := core.ParseMonthKey(month)
		if err != nil {
			slog.WarnContext(ctx, "Skipping budget with unparseable month", "month", month, "category", category)
			continue
		}
		snap.SetBudget(key, category, core.Money{Cents: core.CoerceCents(cents)})
	}
	return rows.Err()
}

func (s *SQLiteStore) loadTransactions(ctx context.Context, snap *core.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tx_date, tx_type, category, description, amount_cents, mood, saved_id
		 FROM transactions ORDER BY tx_date, id`)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, date, typ, category, description, mood, savedID string
		var cents int64
		if err := rows.Scan(&id, &date, &typ, &category, &description, &cents, &mood, &savedID); err != nil {
			return fmt.Errorf("scan transaction: %w", err)
		}
		day, err := core.ParseDate(date)
		if err != nil {
			slog.WarnContext(ctx, "Skipping transaction with unparseable date", "id", id, "date", date)
			continue
		}
		txType := core.TransactionType(typ)
		if !txType.Valid() {
			slog.WarnContext(ctx, "Skipping transaction with unknown type", "id", id, "type", typ)
			continue
		}
		snap.Transactions = append(snap.Transactions, core.Transaction{
			ID:          id,
			Date:        day,
			Type:        txType,
			Category:    category,
			Description: description,
			Amount:      core.Money{Cents: core.CoerceCents(cents)},
			Mood:        mood,
			SavedID:     savedID,
		})
	}
	return rows.Err()
}

func (s *SQLiteStore) loadSavedItems(ctx context.Context, snap *core.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, category, mood, repeat, next_due FROM saved_items ORDER BY name, id`)
	if err != nil {
		return fmt.Errorf("load saved items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, category, mood, repeat, nextDue string
		var cents int64
		if err := rows.Scan(&id, &name, &cents, &category, &mood, &repeat, &nextDue); err != nil {
			return fmt.Errorf("scan saved item: %w", err)
		}
		item := core.SavedItem{
			ID:       id,
			Name:     name,
			Amount:   core.Money{Cents: core.CoerceCents(cents)},
			Category: category,
			Mood:     mood,
			Repeat:   core.Repeat(repeat),
		}
		if !item.Repeat.Valid() {
			slog.WarnContext(ctx, "Coercing saved item with unknown repeat to none", "id", id, "repeat", repeat)
			item.Repeat = core.RepeatNone
		}
		if item.Repeat.Recurring() && nextDue != "" {
			due, err := core.ParseDate(nextDue)
			if err != nil {
				// Unset is fine: the engine re-initializes it to today.
				slog.WarnContext(ctx, "Ignoring unparseable next due date", "id", id, "next_due", nextDue)
			} else {
				item.NextDue = due
			}
		}
		snap.SavedItems = append(snap.SavedItems, item)
	}
	return rows.Err()
}

// Save replaces the persisted snapshot in one database transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap core.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"settings", "categories", "budgets", "transactions", "saved_items"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?), (?, ?)`,
		settingSelectedMonth, snap.SelectedMonth.String(),
		settingVersion, fmt.Sprintf("%d", snap.Version)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	for i, name := range snap.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (position, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("save category %q: %w", name, err)
		}
	}

	for month, limits := range snap.Budgets {
		for category, limit := range limits {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO budgets (month, category, limit_cents) VALUES (?, ?, ?)`,
				month.String(), category, limit.Cents); err != nil {
				return fmt.Errorf("save budget %s/%s: %w", month, category, err)
			}
		}
	}

	for _, t := range snap.Transactions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, tx_date, tx_type, category, description, amount_cents, mood, saved_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Date.String(), string(t.Type), t.Category, t.Description, t.Amount.Cents, t.Mood, t.SavedID); err != nil {
			return fmt.Errorf("save transaction %s: %w", t.ID, err)
		}
	}

	for _, item := range snap.SavedItems {
		nextDue := ""
		if !item.NextDue.IsZero() {
			nextDue = item.NextDue.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO saved_items (id, name, amount_cents, category, mood, repeat, next_due)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.Name, item.Amount.Cents, item.Category, item.Mood, string(item.Repeat), nextDue); err != nil {
			return fmt.Errorf("save saved item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
