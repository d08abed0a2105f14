package core

import (
	"fmt"
	"time"
)

// MonthKey identifies a budgeting period as a year and month. Its string
// form is YYYY-MM, which is also how it is persisted and used as a map key.
type MonthKey time.Time

// NewMonthKey returns the MonthKey for a year and month.
func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// MonthKeyOf returns the MonthKey in which a time occurs.
func MonthKeyOf(t time.Time) MonthKey {
	y, m, _ := t.Date()
	return NewMonthKey(y, m)
}

// ParseMonthKey parses a "YYYY-MM" string.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("parse month key %q: %w", s, err)
	}
	return MonthKeyOf(t), nil
}

// String returns the key formatted as YYYY-MM.
func (m MonthKey) String() string {
	t := time.Time(m)
	return fmt.Sprintf("%04d-%02d", t.Year(), t.Month())
}

// IsZero reports whether the key is unset.
func (m MonthKey) IsZero() bool {
	return time.Time(m).IsZero()
}

// Contains reports whether a date falls inside the month.
func (m MonthKey) Contains(d Date) bool {
	y, mo, _ := d.Date()
	t := time.Time(m)
	return t.Year() == y && t.Month() == mo
}

// AddMonths returns the key n months later (negative n goes back).
func (m MonthKey) AddMonths(n int) MonthKey {
	return MonthKey(time.Time(m).AddDate(0, n, 0))
}

// MarshalText encodes the key as YYYY-MM, which also makes the key usable
// as a JSON object key.
func (m MonthKey) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a YYYY-MM string.
func (m *MonthKey) UnmarshalText(data []byte) error {
	parsed, err := ParseMonthKey(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
