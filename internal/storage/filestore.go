package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"soldi/internal/core"
)

// FileStore persists the snapshot as a single JSON document. A missing or
// malformed file loads as the default state; unknown fields are ignored and
// absent fields keep their defaults.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path, creating the parent
// directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Close() error { return nil }

// Records mirror the domain types with lenient field handling so one bad
// value never poisons the whole snapshot.
type (
	snapshotRecord struct {
		Categories    []string                              `json:"categories"`
		SelectedMonth string                                `json:"selectedMonth"`
		Budgets       map[string]map[string]json.RawMessage `json:"budgets"`
		Transactions  []transactionRecord                   `json:"transactions"`
		SavedItems    []savedItemRecord                     `json:"savedItems"`
		Version       uint64                                `json:"version"`
	}

	transactionRecord struct {
		ID          string          `json:"id"`
		Date        string          `json:"date"`
		Type        string          `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      json.RawMessage `json:"amount"`
		Mood        string          `json:"mood"`
		SavedID     string          `json:"savedId,omitempty"`
	}

	savedItemRecord struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Amount   json.RawMessage `json:"amount"`
		Category string          `json:"category"`
		Mood     string          `json:"mood"`
		Repeat   string          `json:"repeat"`
		NextDue  string          `json:"nextDue,omitempty"`
	}
)

func (s *FileStore) Load(ctx context.Context) (core.Snapshot, error) {
	snap := core.Snapshot{Budgets: make(map[core.MonthKey]map[string]core.Money)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("read snapshot: %w", err)
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.WarnContext(ctx, "Snapshot file unparseable, starting from defaults",
			"path", s.path, "error", err)
		return snap, nil
	}

	snap.Categories = rec.Categories
	snap.Version = rec.Version
	if rec.SelectedMonth != "" {
		month, err := core.ParseMonthKey(rec.SelectedMonth)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring unparseable selected month", "value", rec.SelectedMonth)
		} else {
			snap.SelectedMonth = month
		}
	}

	for monthStr, limits := range rec.Budgets {
		month, err := core.ParseMonthKey(monthStr)
		if err != nil {
			slog.WarnContext(ctx, "Skipping budget month", "month", monthStr)
			continue
		}
		for category, raw := range limits {
			snap.SetBudget(month, category, core.Money{Cents: centsFromRaw(raw)})
		}
	}

	for _, t := range rec.Transactions {
		day, err := core.ParseDate(t.Date)
		if err != nil {
			slog.WarnContext(ctx, "Skipping transaction with unparseable date", "id", t.ID, "date", t.Date)
			continue
		}
		txType := core.TransactionType(t.Type)
		if !txType.Valid() {
			slog.WarnContext(ctx, "Skipping transaction with unknown type", "id", t.ID, "type", t.Type)
			continue
		}
		snap.Transactions = append(snap.Transactions, core.Transaction{
			ID:          t.ID,
			Date:        day,
			Type:        txType,
			Category:    t.Category,
			Description: t.Description,
			Amount:      core.Money{Cents: centsFromRaw(t.Amount)},
			Mood:        t.Mood,
			SavedID:     t.SavedID,
		})
	}

	for _, r := range rec.SavedItems {
		item := core.SavedItem{
			ID:       r.ID,
			Name:     r.Name,
			Amount:   core.Money{Cents: centsFromRaw(r.Amount)},
			Category: r.Category,
			Mood:     r.Mood,
			Repeat:   core.Repeat(r.Repeat),
		}
		if !item.Repeat.Valid() {
			slog.WarnContext(ctx, "Coercing saved item with unknown repeat to none", "id", r.ID, "repeat", r.Repeat)
			item.Repeat = core.RepeatNone
		}
		if item.Repeat.Recurring() && r.NextDue != "" {
			if due, err := core.ParseDate(r.NextDue); err == nil {
				item.NextDue = due
			} else {
				slog.WarnContext(ctx, "Ignoring unparseable next due date", "id", r.ID, "next_due", r.NextDue)
			}
		}
		snap.SavedItems = append(snap.SavedItems, item)
	}

	return snap, nil
}

// Save writes the snapshot to a temp file and renames it into place, so a
// crash mid-write never leaves a truncated snapshot behind.
func (s *FileStore) Save(ctx context.Context, snap core.Snapshot) error {
	rec := snapshotRecord{
		Categories:    snap.Categories,
		SelectedMonth: snap.SelectedMonth.String(),
		Budgets:       make(map[string]map[string]json.RawMessage, len(snap.Budgets)),
		Version:       snap.Version,
	}
	for month, limits := range snap.Budgets {
		m := make(map[string]json.RawMessage, len(limits))
		for category, limit := range limits {
			m[category] = json.RawMessage(fmt.Sprintf("%d", limit.Cents))
		}
		rec.Budgets[month.String()] = m
	}
	for _, t := range snap.Transactions {
		rec.Transactions = append(rec.Transactions, transactionRecord{
			ID:          t.ID,
			Date:        t.Date.String(),
			Type:        string(t.Type),
			Category:    t.Category,
			Description: t.Description,
			Amount:      json.RawMessage(fmt.Sprintf("%d", t.Amount.Cents)),
			Mood:        t.Mood,
			SavedID:     t.SavedID,
		})
	}
	for _, item := range snap.SavedItems {
		r := savedItemRecord{
			ID:       item.ID,
			Name:     item.Name,
			Amount:   json.RawMessage(fmt.Sprintf("%d", item.Amount.Cents)),
			Category: item.Category,
			Mood:     item.Mood,
			Repeat:   string(item.Repeat),
		}
		if !item.NextDue.IsZero() {
			r.NextDue = item.NextDue.String()
		}
		rec.SavedItems = append(rec.SavedItems, r)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// centsFromRaw coerces an untrusted JSON amount to cents, defaulting to
// zero for garbage.
func centsFromRaw(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return core.CoerceCents(v)
}
