package app

import (
	"strings"

	"bilancio/internal/core"
)

// Transaction validates d and builds the record it describes. Every failure is a
// *core.ValidationError naming the offending field.
func (d Draft) Transaction(id string) (core.Transaction, error) {
	if !d.Kind.IsValid() {
		return core.Transaction{}, &core.ValidationError{Field: "kind", Err: core.ErrUnknownKind}
	}
	amount, err := core.ParseMoney(d.Amount)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: err}
	}
	date, err := core.ParseDate(d.Date)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "date", Err: err}
	}

	var t core.Transaction
	switch d.Kind {
	case core.KindExpense:
		t = core.NewExpense(id, amount, date, strings.TrimSpace(d.Category), strings.TrimSpace(d.Reason))
	case core.KindIncome:
		t = core.NewIncome(id, amount, date, strings.TrimSpace(d.Source))
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// DraftOf fills a form with an existing record.
func DraftOf(t core.Transaction) Draft {
	d := Draft{
		Kind:   t.Kind(),
		Amount: t.Amount.String(),
		Date:   t.Date.String(),
	}
	if e, ok := t.Expense(); ok {
		d.Category, d.Reason = e.Category, e.Reason
	}
	if i, ok := t.Income(); ok {
		d.Source = i.Source
	}
	return d
}
