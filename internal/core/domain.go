package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

type (
	TransactionType string

	Repeat string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger entry. Immutable once created except
	// by deletion. Amount is stored unsigned; the income/expense sign is
	// applied at aggregation time only.
	Transaction struct {
		ID          string
		Date        Date
		Type        TransactionType
		Category    string
		Description string
		Amount      Money
		Mood        string
		SavedID     string // set when materialized or quick-added from a saved item
	}

	// SavedItem is a template for a recurring or quick-add expense.
	// NextDue stays zero while Repeat is RepeatNone.
	SavedItem struct {
		ID       string
		Name     string
		Amount   Money
		Category string
		Mood     string
		Repeat   Repeat
		NextDue  Date
	}

	// Snapshot is the full persisted application state. Version increments
	// on every mutation and keys the report cache; it is persisted so cache
	// keys stay unique across sessions.
	Snapshot struct {
		Categories    []string
		SelectedMonth MonthKey
		Budgets       map[MonthKey]map[string]Money
		Transactions  []Transaction
		SavedItems    []SavedItem
		Version       uint64
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidRepeat     = errors.New("invalid repeat")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyCategory     = errors.New("empty category")
	ErrDuplicateCategory = errors.New("duplicate category")
)

// NewID returns a process-unique opaque token for transactions and saved items.
func NewID() string {
	return uuid.NewString()
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (r Repeat) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// Recurring reports whether the repeat schedules automatic materialization.
func (r Repeat) Recurring() bool {
	return r.Valid() && r != RepeatNone
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

func (s SavedItem) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Category) == "" {
		return ErrEmptyCategory
	}
	if !s.Repeat.Valid() {
		return ErrInvalidRepeat
	}
	return nil
}

// NewSnapshot returns the default state used when nothing (or nothing
// readable) is persisted yet.
func NewSnapshot(now time.Time) Snapshot {
	return Snapshot{
		Budgets:       make(map[MonthKey]map[string]Money),
		SelectedMonth: MonthKeyOf(now),
	}
}

// HasCategory reports whether name is already a known category.
func (s Snapshot) HasCategory(name string) bool {
	for _, c := range s.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Budget returns the limit for (month, category); absent entries are zero.
func (s Snapshot) Budget(month MonthKey, category string) Money {
	return s.Budgets[month][category]
}

// SetBudget stores a limit, allocating the month map on first use.
func (s *Snapshot) SetBudget(month MonthKey, category string, limit Money) {
	if s.Budgets == nil {
		s.Budgets = make(map[MonthKey]map[string]Money)
	}
	if s.Budgets[month] == nil {
		s.Budgets[month] = make(map[string]Money)
	}
	s.Budgets[month][category] = limit
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a calendar day in 2006-01-02 form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// NextMonthClamped returns the same day one calendar month later, clamped
// to the last day of the target month. Jan 31 yields Feb 28 (or 29), never
// an overflow into March.
func (d Date) NextMonthClamped() Date {
	y, m, day := d.Date()
	first := time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// MarshalJSON encodes the date as a "2006-01-02" string.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a "2006-01-02" string; empty and null decode to the
// zero date rather than failing.
func (d *Date) UnmarshalJSON(data []byte) error {
	v := strings.Trim(string(data), `"`)
	if v == "" || v == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
