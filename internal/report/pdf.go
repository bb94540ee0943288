package report

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"bilancio/internal/core"
)

// BuildMonthlyPDF renders view as a one-month statement for owner: totals, the category
// breakdown with each share of spending, and the month's transactions.
func BuildMonthlyPDF(view MonthlyView, owner core.Principal, registry *core.Registry) ([]byte, error) {
	if registry == nil {
		registry = core.DefaultRegistry
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Bilancio - "+view.Month.Label()), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr("Monthly report - "+view.Month.Label()))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	name := owner.Name
	if name == "" {
		name = owner.ID
	}
	pdf.Cell(0, 8, tr("Account: "+name))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	for _, row := range [][2]string{
		{"Income", euros(view.TotalIncome)},
		{"Expenses", euros(view.TotalExpense)},
		{"Balance", euros(view.Balance)},
	} {
		pdf.Cell(50, 8, row[0])
		pdf.CellFormat(40, 8, tr(row[1]), "", 0, "R", false, 0, "")
		pdf.Ln(8)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Category breakdown")
	pdf.Ln(8)
	if len(view.Breakdown) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, "No expenses this month.")
		pdf.Ln(7)
	} else {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(70, 7, "Category")
		pdf.CellFormat(40, 7, "Amount", "", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, "%", "", 0, "R", false, 0, "")
		pdf.Ln(7)

		pdf.SetFont("Helvetica", "", 11)
		for _, c := range view.Breakdown {
			pdf.Cell(70, 7, tr(c.Label))
			pdf.CellFormat(40, 7, tr(euros(c.Amount)), "", 0, "R", false, 0, "")
			pdf.CellFormat(25, 7, fmt.Sprintf("%.1f%%", share(c.Amount, view.TotalExpense)), "", 0, "R", false, 0, "")
			pdf.Ln(7)
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Transactions")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	listed := 0
	for _, t := range view.Feed {
		if !view.Month.Contains(t.Date) {
			continue
		}
		listed++
		amount := euros(t.Amount)
		var what string
		if e, ok := t.Expense(); ok {
			amount = "-" + amount
			what = registry.Label(e.Category)
			if e.Reason != "" {
				what += ": " + e.Reason
			}
		} else if i, ok := t.Income(); ok {
			what = i.Source
		}
		pdf.Cell(25, 6, t.Date.String())
		pdf.CellFormat(30, 6, tr(amount), "", 0, "R", false, 0, "")
		pdf.Cell(4, 6, "")
		pdf.MultiCell(0, 6, tr(what), "", "L", false)
	}
	if listed == 0 {
		pdf.Cell(0, 6, "No transactions this month.")
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func euros(m core.Money) string {
	return "€" + m.String()
}

func share(part, total core.Money) float64 {
	if total.Cents == 0 {
		return 0
	}
	return float64(part.Cents) * 100 / float64(total.Cents)
}
