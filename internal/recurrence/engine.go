// Package recurrence materializes saved recurring items into transactions.
//
// The engine runs once per session at startup: for every saved item with a
// schedule it emits one expense per occurrence between the item's NextDue
// marker and today (inclusive), then advances the marker past today. When
// the app stays closed for weeks, the next start backfills every missed
// occurrence.
package recurrence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"soldi/internal/core"
)

// DefaultMaxOccurrences bounds how many occurrences a single item may emit
// in one run. A daily item left dormant for a year emits ~365, well under
// the cap; hitting it means the stored NextDue is implausibly far in the
// past (clock skew, corrupted storage) and is reported as an anomaly.
const DefaultMaxOccurrences = 1000

// Anomaly reports an item whose backfill hit the occurrence cap.
type Anomaly struct {
	ItemID   string
	ItemName string
	Emitted  int
	NextDue  core.Date
}

func (a Anomaly) Error() string {
	return fmt.Sprintf("saved item %q (%s): occurrence cap reached after %d transactions, next due %s",
		a.ItemName, a.ItemID, a.Emitted, a.NextDue)
}

// Result carries everything one Materialize call produced: the new
// transactions in schedule order, the saved items with advanced NextDue
// markers, and any cap anomalies.
type Result struct {
	Transactions []core.Transaction
	Items        []core.SavedItem
	Anomalies    []Anomaly
}

// Engine advances saved-item schedules. The zero value is not usable; use New.
type Engine struct {
	maxOccurrences int
	newID          func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxOccurrences overrides the per-item occurrence cap.
func WithMaxOccurrences(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxOccurrences = n
		}
	}
}

// WithIDFunc overrides transaction ID generation, mainly for tests.
func WithIDFunc(f func() string) Option {
	return func(e *Engine) {
		if f != nil {
			e.newID = f
		}
	}
}

// New returns an Engine with the default occurrence cap.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxOccurrences: DefaultMaxOccurrences,
		newID:          core.NewID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Materialize emits all newly due occurrences for every recurring item up
// to and including now, and returns the items with NextDue advanced to the
// first schedule point strictly after now.
//
// Items with Repeat none pass through untouched. An item whose NextDue was
// never initialized becomes due starting today, not retroactively. The call
// is idempotent per boundary: a second call with the same now emits nothing.
func (e *Engine) Materialize(ctx context.Context, now time.Time, items []core.SavedItem) Result {
	today := core.DateOf(now)
	result := Result{Items: make([]core.SavedItem, 0, len(items))}

	for _, item := range items {
		if !item.Repeat.Recurring() {
			result.Items = append(result.Items, item)
			continue
		}

		if item.NextDue.IsZero() {
			item.NextDue = today
		}

		emitted := 0
		for !item.NextDue.After(today) {
			if emitted >= e.maxOccurrences {
				anomaly := Anomaly{
					ItemID:   item.ID,
					ItemName: item.Name,
					Emitted:  emitted,
					NextDue:  item.NextDue,
				}
				result.Anomalies = append(result.Anomalies, anomaly)
				slog.WarnContext(ctx, "Recurring item hit occurrence cap, stopping backfill",
					"id", item.ID,
					"name", item.Name,
					"emitted", emitted,
					"next_due", item.NextDue.String())
				break
			}

			result.Transactions = append(result.Transactions, core.Transaction{
				ID:          e.newID(),
				Date:        item.NextDue,
				Type:        core.Expense,
				Category:    item.Category,
				Description: item.Name,
				Amount:      item.Amount,
				Mood:        item.Mood,
				SavedID:     item.ID,
			})
			item.NextDue = advance(item.NextDue, item.Repeat)
			emitted++
		}

		if emitted > 0 {
			slog.InfoContext(ctx, "Materialized recurring item",
				"id", item.ID,
				"name", item.Name,
				"occurrences", emitted,
				"next_due", item.NextDue.String())
		}
		result.Items = append(result.Items, item)
	}

	return result
}

// advance moves a due date forward one period. Monthly advance clamps to
// the last day of the target month, so Jan 31 becomes Feb 28 rather than
// overflowing into March. The result is always strictly later than d.
func advance(d core.Date, r core.Repeat) core.Date {
	switch r {
	case core.RepeatDaily:
		return d.AddDays(1)
	case core.RepeatWeekly:
		return d.AddDays(7)
	case core.RepeatMonthly:
		return d.NextMonthClamped()
	default:
		// Unreachable for recurring repeats; fall forward a day so the
		// caller's loop can never spin.
		return d.AddDays(1)
	}
}
