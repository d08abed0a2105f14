package storage

import (
	"context"
	"path/filepath"
	"testing"

	"soldi/internal/core"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "soldi.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	month := core.NewMonthKey(2025, 3)
	snap := core.Snapshot{
		Categories:    []string{"Food", "Transport", "Housing"},
		SelectedMonth: month,
		Budgets:       map[core.MonthKey]map[string]core.Money{},
		Transactions: []core.Transaction{
			{
				ID:          "t1",
				Date:        core.NewDate(2025, 3, 2),
				Type:        core.Expense,
				Category:    "Food",
				Description: "groceries",
				Amount:      core.Money{Cents: 4500},
				Mood:        "happy",
			},
			{
				ID:          "t2",
				Date:        core.NewDate(2025, 3, 5),
				Type:        core.Income,
				Category:    "Salary",
				Description: "march pay",
				Amount:      core.Money{Cents: 250000},
				Mood:        "relieved",
			},
		},
		SavedItems: []core.SavedItem{
			{
				ID:       "s1",
				Name:     "Rent",
				Amount:   core.Money{Cents: 90000},
				Category: "Housing",
				Mood:     "neutral",
				Repeat:   core.RepeatMonthly,
				NextDue:  core.NewDate(2025, 4, 1),
			},
			{
				ID:       "s2",
				Name:     "Coffee",
				Amount:   core.Money{Cents: 300},
				Category: "Food",
				Mood:     "happy",
				Repeat:   core.RepeatNone,
			},
		},
		Version: 42,
	}
	snap.SetBudget(month, "Food", core.Money{Cents: 30000})

	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got.Categories) != 3 || got.Categories[0] != "Food" || got.Categories[2] != "Housing" {
		t.Errorf("categories lost their order: %v", got.Categories)
	}
	if got.SelectedMonth.String() != "2025-03" {
		t.Errorf("selectedMonth = %s", got.SelectedMonth)
	}
	if got.Version != 42 {
		t.Errorf("version = %d, want 42", got.Version)
	}
	if got.Budget(month, "Food").Cents != 30000 {
		t.Errorf("budget = %d", got.Budget(month, "Food").Cents)
	}
	if len(got.Transactions) != 2 {
		t.Fatalf("got %d transactions", len(got.Transactions))
	}
	for i := range snap.Transactions {
		if got.Transactions[i] != snap.Transactions[i] {
			t.Errorf("transaction %d = %+v, want %+v", i, got.Transactions[i], snap.Transactions[i])
		}
	}
	if len(got.SavedItems) != 2 {
		t.Fatalf("got %d saved items", len(got.SavedItems))
	}
	// Load orders saved items by name; Coffee sorts before Rent.
	if got.SavedItems[0].ID != "s2" || got.SavedItems[1] != snap.SavedItems[0] {
		t.Errorf("savedItems = %+v", got.SavedItems)
	}

	// A second save must fully replace the previous snapshot.
	snap.Transactions = snap.Transactions[:1]
	snap.Version = 43
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load after second save: %v", err)
	}
	if len(got.Transactions) != 1 || got.Version != 43 {
		t.Errorf("overwrite semantics violated: %d transactions, version %d", len(got.Transactions), got.Version)
	}
}

func TestSQLiteStoreEmptyDatabaseLoadsDefaults(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "soldi.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Transactions) != 0 || len(snap.SavedItems) != 0 || snap.Version != 0 {
		t.Errorf("fresh database did not load defaults: %+v", snap)
	}
	if !snap.SelectedMonth.IsZero() {
		t.Errorf("selectedMonth = %v, want zero", snap.SelectedMonth)
	}
}
