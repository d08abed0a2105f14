package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"soldi/internal/core"
	"soldi/internal/recurrence"
)

// memStore records saves so tests can assert persistence behavior.
type memStore struct {
	snap    core.Snapshot
	saves   int
	saveErr error
}

func (m *memStore) Load(context.Context) (core.Snapshot, error) {
	return m.snap, nil
}

func (m *memStore) Save(_ context.Context, snap core.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = snap
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

func fixedClock(y, mo, d int) func() time.Time {
	return func() time.Time {
		return time.Date(y, time.Month(mo), d, 10, 0, 0, 0, time.UTC)
	}
}

func openLedger(t *testing.T, store *memStore, clock func() time.Time) *Ledger {
	t.Helper()
	ledger, anomalies, err := Open(context.Background(), store, recurrence.New(), WithClock(clock))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(anomalies) != 0 {
		t.Fatalf("unexpected anomalies: %v", anomalies)
	}
	return ledger
}

func TestOpenMaterializesAndPersists(t *testing.T) {
	store := &memStore{snap: core.Snapshot{
		SavedItems: []core.SavedItem{{
			ID:       "s1",
			Name:     "Bus pass",
			Amount:   core.Money{Cents: 1000},
			Category: "Transport",
			Repeat:   core.RepeatWeekly,
			NextDue:  core.NewDate(2025, 1, 1),
		}},
		Version: 3,
	}}

	ledger := openLedger(t, store, fixedClock(2025, 1, 22))

	snap := ledger.Snapshot()
	if len(snap.Transactions) != 4 {
		t.Fatalf("got %d transactions, want 4 backfilled occurrences", len(snap.Transactions))
	}
	if got := snap.SavedItems[0].NextDue.String(); got != "2025-01-29" {
		t.Errorf("nextDue = %s, want 2025-01-29", got)
	}
	if store.saves != 1 {
		t.Errorf("store saved %d times, want 1", store.saves)
	}
	if snap.Version != 4 {
		t.Errorf("version = %d, want 4", snap.Version)
	}

	// Reopening against the saved snapshot emits nothing new.
	again := openLedger(t, store, fixedClock(2025, 1, 22))
	if got := len(again.Snapshot().Transactions); got != 4 {
		t.Errorf("second open produced %d transactions, want 4", got)
	}
}

func TestOpenDefaultsSelectedMonth(t *testing.T) {
	store := &memStore{}
	ledger := openLedger(t, store, fixedClock(2025, 6, 15))
	if got := ledger.Snapshot().SelectedMonth.String(); got != "2025-06" {
		t.Errorf("selectedMonth = %s, want 2025-06", got)
	}
}

func TestCreateTransactionRejectsIncompleteInput(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	ledger := openLedger(t, store, fixedClock(2025, 6, 15))
	savesBefore := store.saves

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{
			name: "missing category",
			tx:   core.Transaction{Date: core.NewDate(2025, 6, 1), Type: core.Expense, Description: "x", Amount: core.Money{Cents: 100}},
			want: core.ErrEmptyCategory,
		},
		{
			name: "missing description",
			tx:   core.Transaction{Date: core.NewDate(2025, 6, 1), Type: core.Expense, Category: "Food", Amount: core.Money{Cents: 100}},
			want: core.ErrEmptyDescription,
		},
		{
			name: "zero amount",
			tx:   core.Transaction{Date: core.NewDate(2025, 6, 1), Type: core.Expense, Category: "Food", Description: "x"},
			want: core.ErrInvalidAmount,
		},
		{
			name: "bad type",
			tx:   core.Transaction{Date: core.NewDate(2025, 6, 1), Type: "transfer", Category: "Food", Description: "x", Amount: core.Money{Cents: 100}},
			want: core.ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.CreateTransaction(ctx, tt.tx)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if got := len(ledger.Snapshot().Transactions); got != 0 {
		t.Errorf("rejected input left %d partial records", got)
	}
	if store.saves != savesBefore {
		t.Errorf("rejected input was persisted (%d saves)", store.saves-savesBefore)
	}
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	ledger := openLedger(t, &memStore{}, fixedClock(2025, 6, 15))

	tx, err := ledger.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2025, 6, 1), Type: core.Expense,
		Category: "Food", Description: "lunch", Amount: core.Money{Cents: 900},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if err := ledger.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if got := len(ledger.Snapshot().Transactions); got != 0 {
		t.Errorf("%d transactions left after delete", got)
	}
	if err := ledger.DeleteTransaction(ctx, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestAddCategoryRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	ledger := openLedger(t, &memStore{}, fixedClock(2025, 6, 15))

	if err := ledger.AddCategory(ctx, "Food"); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if err := ledger.AddCategory(ctx, "Food"); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Errorf("duplicate err = %v, want ErrDuplicateCategory", err)
	}
	if err := ledger.AddCategory(ctx, "  "); !errors.Is(err, core.ErrEmptyCategory) {
		t.Errorf("blank err = %v, want ErrEmptyCategory", err)
	}
}

func TestQuickAddBypassesSchedule(t *testing.T) {
	ctx := context.Background()
	store := &memStore{snap: core.Snapshot{
		SavedItems: []core.SavedItem{{
			ID:       "s1",
			Name:     "Coffee",
			Amount:   core.Money{Cents: 300},
			Category: "Food",
			Mood:     "happy",
			Repeat:   core.RepeatNone,
		}},
		Version: 1,
	}}
	ledger := openLedger(t, store, fixedClock(2025, 6, 15))

	tx, err := ledger.QuickAdd(ctx, "s1")
	if err != nil {
		t.Fatalf("QuickAdd: %v", err)
	}
	if tx.Date.String() != "2025-06-15" {
		t.Errorf("quick-add dated %s, want today", tx.Date)
	}
	if tx.Type != core.Expense || tx.SavedID != "s1" || tx.Description != "Coffee" {
		t.Errorf("quick-add transaction = %+v", tx)
	}
	if !ledger.Snapshot().SavedItems[0].NextDue.IsZero() {
		t.Error("quick-add touched the schedule")
	}

	if _, err := ledger.QuickAdd(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestSaveFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	ledger := openLedger(t, store, fixedClock(2025, 6, 15))
	month := core.NewMonthKey(2025, 6)

	seeded, err := ledger.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2025, 6, 1), Type: core.Expense,
		Category: "Food", Description: "lunch", Amount: core.Money{Cents: 900},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	versionBefore := ledger.Snapshot().Version

	store.saveErr = errors.New("disk full")

	if _, err := ledger.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2025, 6, 2), Type: core.Expense,
		Category: "Food", Description: "dinner", Amount: core.Money{Cents: 1200},
	}); err == nil {
		t.Fatal("expected save failure")
	}
	if err := ledger.DeleteTransaction(ctx, seeded.ID); err == nil {
		t.Fatal("expected save failure")
	}
	if err := ledger.SetBudget(ctx, month, "Food", core.Money{Cents: 5000}); err == nil {
		t.Fatal("expected save failure")
	}

	snap := ledger.Snapshot()
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != seeded.ID {
		t.Errorf("failed saves changed the log: %+v", snap.Transactions)
	}
	if got := snap.Budget(month, "Food"); got.Cents != 0 {
		t.Errorf("failed save left a budget of %d", got.Cents)
	}
	if snap.Version != versionBefore {
		t.Errorf("version = %d, want unchanged %d", snap.Version, versionBefore)
	}

	// Retrying after recovery records exactly once.
	store.saveErr = nil
	if _, err := ledger.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2025, 6, 2), Type: core.Expense,
		Category: "Food", Description: "dinner", Amount: core.Money{Cents: 1200},
	}); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if got := len(ledger.Snapshot().Transactions); got != 2 {
		t.Errorf("retry recorded %d transactions total, want 2", got)
	}
	if got := ledger.Snapshot().Version; got != versionBefore+1 {
		t.Errorf("version = %d, want %d", got, versionBefore+1)
	}
}

func TestSetBudgetAndSummary(t *testing.T) {
	ctx := context.Background()
	ledger := openLedger(t, &memStore{}, fixedClock(2025, 6, 15))
	month := core.NewMonthKey(2025, 6)

	if err := ledger.SetBudget(ctx, month, "Food", core.Money{Cents: 20000}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if _, err := ledger.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2025, 6, 2), Type: core.Expense,
		Category: "Food", Description: "groceries", Amount: core.Money{Cents: 4500}, Mood: "neutral",
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := ledger.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2025, 6, 5), Type: core.Income,
		Category: "Salary", Description: "pay", Amount: core.Money{Cents: 250000},
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	s := ledger.Summary(month)
	if s.Net.Cents != 250000-4500 {
		t.Errorf("net = %d", s.Net.Cents)
	}
	if len(s.ByCategory) != 1 || s.ByCategory[0].Remaining.Cents != 20000-4500 {
		t.Errorf("byCategory = %+v", s.ByCategory)
	}

	// Memoized: the same (version, month) returns the identical result.
	again := ledger.Summary(month)
	if again.Net != s.Net || again.Expenses != s.Expenses {
		t.Errorf("memoized summary differs: %+v vs %+v", again, s)
	}
}
