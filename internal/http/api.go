package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"bilancio/internal/app"
	"bilancio/internal/core"
)

type (
	stateJSON struct {
		Principal  *principalJSON    `json:"principal"`
		Month      string            `json:"month"`
		MonthLabel string            `json:"month_label"`
		Loading    bool              `json:"loading"`
		Income     string            `json:"total_income"`
		Expense    string            `json:"total_expense"`
		Balance    string            `json:"balance"`
		Breakdown  []categoryJSON    `json:"breakdown"`
		Feed       []transactionJSON `json:"feed"`
		Skipped    int               `json:"skipped,omitempty"`
		Banners    []bannerJSON      `json:"banners"`
		FormError  *formErrorJSON    `json:"form_error,omitempty"`
		Advice     adviceJSON        `json:"advice"`
		Error      string            `json:"error,omitempty"`
	}

	principalJSON struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url,omitempty"`
	}

	categoryJSON struct {
		Code   string `json:"code"`
		Label  string `json:"label"`
		Amount string `json:"amount"`
	}

	transactionJSON struct {
		ID       string `json:"id"`
		Kind     string `json:"kind"`
		Amount   string `json:"amount"`
		Date     string `json:"date"`
		Category string `json:"category,omitempty"`
		Label    string `json:"category_label,omitempty"`
		Reason   string `json:"reason,omitempty"`
		Source   string `json:"source,omitempty"`
	}

	bannerJSON struct {
		Kind        string `json:"kind"`
		Message     string `json:"message"`
		Dismissible bool   `json:"dismissible"`
	}

	formErrorJSON struct {
		ID      string `json:"id,omitempty"`
		Field   string `json:"field"`
		Message string `json:"message"`
	}

	adviceJSON struct {
		Status string `json:"status"`
		Month  string `json:"month,omitempty"`
		Text   string `json:"text,omitempty"`
		Error  string `json:"error,omitempty"`
	}
)

func encodeState(s app.State, registry *core.Registry) stateJSON {
	v := s.View
	out := stateJSON{
		Month:      FormatMonth(s.Month),
		MonthLabel: s.Month.Label(),
		Loading:    s.Loading(),
		Income:     v.TotalIncome.String(),
		Expense:    v.TotalExpense.String(),
		Balance:    v.Balance.String(),
		Breakdown:  make([]categoryJSON, 0, len(v.Breakdown)),
		Feed:       make([]transactionJSON, 0, len(v.Feed)),
		Skipped:    v.Skipped,
		Banners:    make([]bannerJSON, 0, len(s.Banners)),
		Advice:     adviceJSON{Status: string(s.Advice.Status), Text: s.Advice.Text, Error: s.Advice.Error},
	}
	if s.SignedIn() {
		out.Principal = &principalJSON{ID: s.Principal.ID, Name: s.Principal.Name, AvatarURL: s.Principal.AvatarURL}
	}
	if s.Advice.Status != app.AdviceIdle {
		out.Advice.Month = FormatMonth(s.Advice.Month)
	}
	for _, c := range v.Breakdown {
		out.Breakdown = append(out.Breakdown, categoryJSON{Code: c.Code, Label: c.Label, Amount: c.Amount.String()})
	}
	for _, t := range v.Feed {
		tj := transactionJSON{ID: t.ID, Kind: string(t.Kind()), Amount: t.Amount.String(), Date: t.Date.String()}
		if e, ok := t.Expense(); ok {
			tj.Category, tj.Label, tj.Reason = e.Category, registry.Label(e.Category), e.Reason
		}
		if i, ok := t.Income(); ok {
			tj.Source = i.Source
		}
		out.Feed = append(out.Feed, tj)
	}
	for _, b := range s.Banners {
		out.Banners = append(out.Banners, bannerJSON{Kind: string(b.Kind), Message: b.Message, Dismissible: b.Dismissible()})
	}
	if fe := s.FormError; fe != nil {
		out.FormError = &formErrorJSON{ID: fe.ID, Field: fe.Field, Message: fe.Message}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// wantsJSON reports whether the caller is an API client rather than a browser form.
func wantsJSON(r *http.Request, p *RequestBodyParser) bool {
	if p != nil && p.IsJSON() {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
