// Package sheets lays collections out as spreadsheet tabs for the mirror worker.
package sheets

import (
	"context"
	"sort"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

// Ports for outbound adapters.
type (
	// TabWriter replaces the whole content of one tab, creating it when missing.
	TabWriter interface {
		WriteTab(ctx context.Context, tab string, rows [][]any) error
	}
)

// maxTabName is the longest sheet title the Sheets API accepts.
const maxTabName = 100

// TabName names the tab mirroring p, e.g. "alice expenses". The namespace is left out
// because one spreadsheet mirrors one namespace.
func TabName(p store.Path) string {
	r := strings.NewReplacer("[", "(", "]", ")", "*", "_", "?", "_", "/", "_", "\\", "_", ":", "_")
	name := r.Replace(p.PrincipalID) + " " + p.Kind.String() + "s"
	if len(name) > maxTabName {
		name = name[len(name)-maxTabName:]
	}
	return name
}

// Header returns the column titles for a kind.
func Header(kind core.Kind) []any {
	if kind == core.KindIncome {
		return []any{"ID", "Date", "Amount", "Source"}
	}
	return []any{"ID", "Date", "Amount", "Category", "Reason"}
}

// Rows renders txs as a header row followed by one row per well-formed record,
// oldest first. Records of another kind or malformed records are left out.
func Rows(kind core.Kind, txs []core.Transaction, registry *core.Registry) [][]any {
	if registry == nil {
		registry = core.DefaultRegistry
	}
	kept := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.WellFormed() && t.Kind() == kind {
			kept = append(kept, t)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].Date.Equal(kept[j].Date.Time) {
			return kept[i].Date.Before(kept[j].Date.Time)
		}
		return kept[i].ID < kept[j].ID
	})

	rows := make([][]any, 0, len(kept)+1)
	rows = append(rows, Header(kind))
	for _, t := range kept {
		row := []any{t.ID, t.Date.String(), t.Amount.Float()}
		switch d := t.Details.(type) {
		case core.ExpenseDetails:
			row = append(row, registry.Label(d.Category), d.Reason)
		case core.IncomeDetails:
			row = append(row, d.Source)
		}
		rows = append(rows, row)
	}
	return rows
}
