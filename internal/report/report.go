// Package report computes the monthly view: totals, category breakdown and the
// chronological transaction feed. Everything here is pure and does no I/O.
package report

import (
	"cmp"
	"slices"

	"bilancio/internal/core"
)

// MonthlyView is the derived aggregate for one month. It is recomputed, never mutated in place.
type MonthlyView struct {
	Month        core.YearMonth
	TotalIncome  core.Money
	TotalExpense core.Money
	Balance      core.Money

	// Breakdown holds the month's expenses grouped by category code, largest first.
	// Entries summing to zero are omitted.
	Breakdown []core.CategoryAmount

	// Feed holds every transaction of both kinds across all months, newest first.
	// It is deliberately not filtered to Month.
	Feed []core.Transaction

	// Skipped counts malformed records left out of every figure.
	Skipped int
}

// HasData reports whether the month has any non-zero total.
func (v MonthlyView) HasData() bool {
	return !v.TotalIncome.IsZero() || !v.TotalExpense.IsZero()
}

// CategoryTotal returns the breakdown amount for code, or zero.
func (v MonthlyView) CategoryTotal(code string) core.Money {
	for _, c := range v.Breakdown {
		if c.Code == code {
			return c.Amount
		}
	}
	return core.Money{}
}

// Compute aggregates expenses and incomes for month. Records that are not well formed
// (non-positive amount, missing date, missing variant) or whose variant does not match the
// collection they came from are skipped and counted in Skipped.
func Compute(expenses, incomes []core.Transaction, month core.YearMonth, registry *core.Registry) MonthlyView {
	if registry == nil {
		registry = core.DefaultRegistry
	}
	view := MonthlyView{Month: month}
	feed := make([]core.Transaction, 0, len(expenses)+len(incomes))
	byCategory := map[string]int64{}

	for _, tx := range expenses {
		details, ok := tx.Expense()
		if !ok || !tx.WellFormed() {
			view.Skipped++
			continue
		}
		feed = append(feed, tx)
		if !month.Contains(tx.Date) {
			continue
		}
		view.TotalExpense = view.TotalExpense.Add(tx.Amount)
		byCategory[details.Category] += tx.Amount.Cents
	}

	for _, tx := range incomes {
		if _, ok := tx.Income(); !ok || !tx.WellFormed() {
			view.Skipped++
			continue
		}
		feed = append(feed, tx)
		if month.Contains(tx.Date) {
			view.TotalIncome = view.TotalIncome.Add(tx.Amount)
		}
	}

	view.Balance = view.TotalIncome.Sub(view.TotalExpense)
	view.Breakdown = breakdown(byCategory, registry)
	SortFeed(feed)
	view.Feed = feed
	return view
}

// breakdown turns per-code cent sums into labelled entries. Sums are whole cents already,
// so the two-decimal rounding of each group is exact.
func breakdown(byCategory map[string]int64, registry *core.Registry) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(byCategory))
	for code, cents := range byCategory {
		if cents <= 0 {
			continue
		}
		out = append(out, core.CategoryAmount{
			Code:   code,
			Label:  registry.Label(code),
			Amount: core.Money{Cents: cents},
		})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return out
}

// SortFeed orders transactions by date descending. Equal dates fall back to kind
// (expenses first) and then id, so the order is the same for identical inputs.
func SortFeed(feed []core.Transaction) {
	slices.SortStableFunc(feed, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind(), b.Kind()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
