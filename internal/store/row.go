package store

import "bilancio/internal/core"

// Row is the flat persisted form of a transaction used by the SQL tables.
type Row struct {
	ID          string
	Kind        string
	AmountCents int64
	OccurredOn  string
	Category    string
	Reason      string
	Source      string
}

// RowOf flattens t.
func RowOf(t core.Transaction) Row {
	r := Row{
		ID:          t.ID,
		Kind:        t.Kind().String(),
		AmountCents: t.Amount.Cents,
		OccurredOn:  t.Date.String(),
	}
	switch d := t.Details.(type) {
	case core.ExpenseDetails:
		r.Category = d.Category
		r.Reason = d.Reason
	case core.IncomeDetails:
		r.Source = d.Source
	}
	return r
}

// Transaction rebuilds the record. A row with an unknown kind comes back without
// details and an unparseable date comes back zero, so aggregation skips it.
func (r Row) Transaction() core.Transaction {
	t := core.Transaction{ID: r.ID, Amount: core.Money{Cents: r.AmountCents}}
	if d, err := core.ParseDate(r.OccurredOn); err == nil {
		t.Date = d
	}
	switch core.Kind(r.Kind) {
	case core.KindExpense:
		t.Details = core.ExpenseDetails{Category: r.Category, Reason: r.Reason}
	case core.KindIncome:
		t.Details = core.IncomeDetails{Source: r.Source}
	}
	return t
}
