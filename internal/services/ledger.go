// Package services orchestrates user intents over the snapshot and the
// persistence provider.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"soldi/internal/cache"
	"soldi/internal/core"
	"soldi/internal/recurrence"
	"soldi/internal/report"
	"soldi/internal/storage"
)

// ErrNotFound is returned when a referenced transaction or saved item does
// not exist.
var ErrNotFound = errors.New("not found")

const summaryCacheSize = 24

// Ledger holds the live snapshot and persists it after every mutation.
// It is single-session: concurrent instances sharing a store overwrite
// each other (last writer wins).
type Ledger struct {
	store     storage.Store
	engine    *recurrence.Engine
	snap      core.Snapshot
	summaries *cache.LRU[report.Summary]
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Open loads the snapshot, materializes due recurring items once (startup
// semantics), and persists the result. Cap anomalies are returned alongside
// a usable ledger; they are a warning, not a failure.
func Open(ctx context.Context, store storage.Store, engine *recurrence.Engine, opts ...Option) (*Ledger, []recurrence.Anomaly, error) {
	l := &Ledger{
		store:     store,
		engine:    engine,
		summaries: cache.New[report.Summary](summaryCacheSize),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap.SelectedMonth.IsZero() {
		snap.SelectedMonth = core.MonthKeyOf(l.now())
	}
	l.snap = snap

	res := engine.Materialize(ctx, l.now(), snap.SavedItems)
	next := snap
	next.SavedItems = res.Items
	next.Transactions = append(clip(snap.Transactions), res.Transactions...)

	if len(res.Transactions) > 0 || snap.Version == 0 {
		if err := l.commit(ctx, next); err != nil {
			return nil, res.Anomalies, err
		}
	} else {
		l.snap = next
	}
	return l, res.Anomalies, nil
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}

// Snapshot returns the current state.
func (l *Ledger) Snapshot() core.Snapshot {
	return l.snap
}

// commit persists a candidate snapshot with a bumped version and swaps it
// in only on success: a failed save leaves the session state exactly as it
// was, so retrying the intent cannot double-record.
func (l *Ledger) commit(ctx context.Context, next core.Snapshot) error {
	next.Version = l.snap.Version + 1
	if err := l.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	l.snap = next
	return nil
}

// clip caps the slice so a later append allocates instead of writing into
// the backing array shared with the current snapshot.
func clip[T any](s []T) []T {
	return s[:len(s):len(s)]
}

// CreateTransaction validates and records a new transaction. The ID is
// assigned here; rejected input creates no partial record.
func (l *Ledger) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.ID = core.NewID()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	next := l.snap
	next.Transactions = append(clip(l.snap.Transactions), tx)
	if err := l.commit(ctx, next); err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transaction recorded",
		"id", tx.ID, "type", string(tx.Type), "category", tx.Category, "amount_cents", tx.Amount.Cents)
	return tx, nil
}

// DeleteTransaction removes a transaction by ID.
func (l *Ledger) DeleteTransaction(ctx context.Context, id string) error {
	for i, tx := range l.snap.Transactions {
		if tx.ID != id {
			continue
		}
		next := l.snap
		txs := make([]core.Transaction, 0, len(l.snap.Transactions)-1)
		txs = append(txs, l.snap.Transactions[:i]...)
		txs = append(txs, l.snap.Transactions[i+1:]...)
		next.Transactions = txs
		return l.commit(ctx, next)
	}
	return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
}

// SetBudget stores a monthly limit for a category.
func (l *Ledger) SetBudget(ctx context.Context, month core.MonthKey, category string, limit core.Money) error {
	if strings.TrimSpace(category) == "" {
		return core.ErrEmptyCategory
	}
	if limit.Cents < 0 {
		return core.ErrInvalidAmount
	}
	next := l.snap
	budgets := make(map[core.MonthKey]map[string]core.Money, len(l.snap.Budgets)+1)
	for m, limits := range l.snap.Budgets {
		budgets[m] = limits
	}
	monthLimits := make(map[string]core.Money, len(l.snap.Budgets[month])+1)
	for c, v := range l.snap.Budgets[month] {
		monthLimits[c] = v
	}
	monthLimits[category] = limit
	budgets[month] = monthLimits
	next.Budgets = budgets
	return l.commit(ctx, next)
}

// CreateSavedItem validates and records a saved item. NextDue stays unset
// for recurring items: the engine initializes it on the next startup, so a
// template created today becomes due today, never retroactively.
func (l *Ledger) CreateSavedItem(ctx context.Context, item core.SavedItem) (core.SavedItem, error) {
	item.ID = core.NewID()
	item.NextDue = core.Date{}
	if err := item.Validate(); err != nil {
		return core.SavedItem{}, err
	}
	next := l.snap
	next.SavedItems = append(clip(l.snap.SavedItems), item)
	if err := l.commit(ctx, next); err != nil {
		return core.SavedItem{}, err
	}
	slog.InfoContext(ctx, "Saved item created",
		"id", item.ID, "name", item.Name, "repeat", string(item.Repeat))
	return item, nil
}

// QuickAdd records one expense dated today from a saved item, bypassing the
// recurrence schedule. NextDue is not touched.
func (l *Ledger) QuickAdd(ctx context.Context, savedID string) (core.Transaction, error) {
	for _, item := range l.snap.SavedItems {
		if item.ID != savedID {
			continue
		}
		tx := core.Transaction{
			ID:          core.NewID(),
			Date:        core.DateOf(l.now()),
			Type:        core.Expense,
			Category:    item.Category,
			Description: item.Name,
			Amount:      item.Amount,
			Mood:        item.Mood,
			SavedID:     item.ID,
		}
		next := l.snap
		next.Transactions = append(clip(l.snap.Transactions), tx)
		if err := l.commit(ctx, next); err != nil {
			return core.Transaction{}, err
		}
		return tx, nil
	}
	return core.Transaction{}, fmt.Errorf("saved item %s: %w", savedID, ErrNotFound)
}

// AddCategory appends a new category name, rejecting duplicates.
func (l *Ledger) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	if l.snap.HasCategory(name) {
		return core.ErrDuplicateCategory
	}
	next := l.snap
	next.Categories = append(clip(l.snap.Categories), name)
	return l.commit(ctx, next)
}

// SelectMonth changes the month the presentation layer is looking at.
func (l *Ledger) SelectMonth(ctx context.Context, month core.MonthKey) error {
	if month.IsZero() {
		return fmt.Errorf("select month: %w", core.ErrInvalidDate)
	}
	next := l.snap
	next.SelectedMonth = month
	return l.commit(ctx, next)
}

// Summary aggregates one month, memoized on (snapshot version, month key).
func (l *Ledger) Summary(month core.MonthKey) report.Summary {
	key := fmt.Sprintf("%d|%s", l.snap.Version, month)
	if s, ok := l.summaries.Get(key); ok {
		return s
	}
	s := report.Summarize(l.snap.Transactions, month, l.snap.Budgets)
	l.summaries.Set(key, s)
	return s
}
