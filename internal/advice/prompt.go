package advice

import (
	"fmt"
	"strings"

	"bilancio/internal/report"
)

// BuildPrompt renders the month's totals and category breakdown. The same view always
// produces the same prompt.
func BuildPrompt(view report.MonthlyView, monthLabel string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a personal finance assistant. Here is my summary for %s.\n", monthLabel)
	fmt.Fprintf(&b, "Total income: %s\n", view.TotalIncome)
	fmt.Fprintf(&b, "Total expenses: %s\n", view.TotalExpense)
	fmt.Fprintf(&b, "Balance: %s\n", view.Balance)
	if len(view.Breakdown) == 0 {
		b.WriteString("There were no expenses this month.\n")
	} else {
		b.WriteString("Expenses by category:\n")
		for _, c := range view.Breakdown {
			fmt.Fprintf(&b, "- %s: %s\n", c.Label, c.Amount)
		}
	}
	b.WriteString("Give me three short, practical suggestions to improve my finances next month. ")
	b.WriteString("Answer in plain text without markdown.")
	return b.String()
}
