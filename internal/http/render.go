package http

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"bilancio/internal/app"
	"bilancio/internal/core"
	appweb "bilancio/web"
)

// page is the view model behind index.html and the dashboard partial.
type page struct {
	State      app.State
	Categories []core.Category
	Kinds      []core.Kind
	MonthValue string
	PrevMonth  string
	NextMonth  string
	Today      string

	// AddDraft prefills the add form after a rejected submission.
	AddDraft app.Draft
	AddError *app.FormError

	// Edit is set while one transaction is being edited.
	Edit *editForm

	// Degraded pages only show the configuration banner.
	Degraded bool
}

type editForm struct {
	ID    string
	Draft app.Draft
	Error *app.FormError
}

func parseTemplates(registry *core.Registry) (*template.Template, error) {
	funcs := template.FuncMap{
		"money":      formatMoney,
		"label":      registry.Label,
		"monthLabel": func(ym core.YearMonth) string { return ym.Label() },
		"monthValue": FormatMonth,
		"kindLabel":  kindLabel,
		"date":       func(d core.Date) string { return d.String() },
		"negative":   func(m core.Money) bool { return m.Cents < 0 },
		"percent":    percent,
		"args":       func(v ...any) []any { return v },
		"category": func(t core.Transaction) string {
			e, _ := t.Expense()
			return e.Category
		},
		"reason": func(t core.Transaction) string {
			e, _ := t.Expense()
			return e.Reason
		},
		"source": func(t core.Transaction) string {
			i, _ := t.Income()
			return i.Source
		},
	}
	return template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// newPage builds the view model for s. edit, when non-nil, opens the edit form for that
// transaction unless a rejected edit is already pending.
func newPage(s app.State, registry *core.Registry, today core.Date, edit *editForm) page {
	p := page{
		State:      s,
		Categories: registry.Categories(),
		Kinds:      core.Kinds(),
		MonthValue: FormatMonth(s.Month),
		PrevMonth:  FormatMonth(s.Month.Add(-1)),
		NextMonth:  FormatMonth(s.Month.Add(1)),
		Today:      today.String(),
		AddDraft:   app.Draft{Kind: core.KindExpense, Date: today.String()},
		Edit:       edit,
	}
	if fe := s.FormError; fe != nil {
		if fe.ID == "" {
			p.AddDraft = fe.Draft
			p.AddError = fe
		} else if edit == nil || edit.ID == fe.ID {
			p.Edit = &editForm{ID: fe.ID, Draft: fe.Draft, Error: fe}
		}
	}
	return p
}

func (s *Server) renderTemplate(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// formatMoney formats an amount as euros with two decimals, e.g. "€1.234,50".
func formatMoney(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	s := fmt.Sprintf("€%s,%02d", grouped.String(), cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// percent is part's share of total, rounded down to a whole percent.
func percent(part, total core.Money) int {
	if total.Cents <= 0 {
		return 0
	}
	return int(part.Cents * 100 / total.Cents)
}

func kindLabel(k core.Kind) string {
	switch k {
	case core.KindExpense:
		return "Expense"
	case core.KindIncome:
		return "Income"
	default:
		return string(k)
	}
}
