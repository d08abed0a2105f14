// Package report computes month summaries over the transaction log.
//
// Everything here is a pure function of its inputs; callers that want
// memoization cache results keyed by (snapshot version, month key).
package report

import (
	"sort"

	"soldi/internal/core"
)

// CategorySpend is expense spend for one category against its budget limit.
type CategorySpend struct {
	Category  string
	Spent     core.Money
	Limit     core.Money
	Remaining core.Money // Limit minus Spent, negative when over budget
}

// MoodSpend is expense spend aggregated by mood tag.
type MoodSpend struct {
	Mood  string
	Spent core.Money
}

// Summary is the aggregate view of one month.
type Summary struct {
	Month      core.MonthKey
	Income     core.Money
	Expenses   core.Money
	Net        core.Money // Income minus Expenses
	ByCategory []CategorySpend
	ByMood     []MoodSpend
}

// Summarize filters transactions to the given month and totals them by
// type, by category against the month's budget, and by mood. Categories
// and moods never seen aggregate as zero; a budgeted category with no
// spend still gets a row so the remaining budget is visible.
func Summarize(txs []core.Transaction, month core.MonthKey, budgets map[core.MonthKey]map[string]core.Money) Summary {
	s := Summary{Month: month}

	byCategory := make(map[string]int64)
	byMood := make(map[string]int64)

	for _, tx := range txs {
		if !month.Contains(tx.Date) {
			continue
		}
		switch tx.Type {
		case core.Income:
			s.Income.Cents += tx.Amount.Cents
		case core.Expense:
			s.Expenses.Cents += tx.Amount.Cents
			byCategory[tx.Category] += tx.Amount.Cents
			byMood[tx.Mood] += tx.Amount.Cents
		}
	}
	s.Net = core.Money{Cents: s.Income.Cents - s.Expenses.Cents}

	limits := budgets[month]
	for category := range limits {
		if _, ok := byCategory[category]; !ok {
			byCategory[category] = 0
		}
	}
	for category, cents := range byCategory {
		limit := limits[category]
		s.ByCategory = append(s.ByCategory, CategorySpend{
			Category:  category,
			Spent:     core.Money{Cents: cents},
			Limit:     limit,
			Remaining: core.Money{Cents: limit.Cents - cents},
		})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})

	for mood, cents := range byMood {
		s.ByMood = append(s.ByMood, MoodSpend{Mood: mood, Spent: core.Money{Cents: cents}})
	}
	sort.Slice(s.ByMood, func(i, j int) bool {
		return s.ByMood[i].Mood < s.ByMood[j].Mood
	})

	return s
}
