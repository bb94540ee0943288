package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bilancio/internal/core"
)

func TestParseMonth(t *testing.T) {
	fallback := core.NewYearMonth(2024, 3)
	tests := []struct {
		name   string
		values url.Values
		want   core.YearMonth
	}{
		{"year-month form", url.Values{"month": {"2023-12"}}, core.NewYearMonth(2023, 12)},
		{"separate values", url.Values{"year": {"2022"}, "month": {"7"}}, core.NewYearMonth(2022, 7)},
		{"only month", url.Values{"month": {"5"}}, core.NewYearMonth(2024, 5)},
		{"out of range month", url.Values{"month": {"13"}}, fallback},
		{"garbage", url.Values{"month": {"abc"}, "year": {"x"}}, fallback},
		{"empty", url.Values{}, fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseMonth(tt.values, fallback); got != tt.want {
				t.Errorf("ParseMonth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatMonth(t *testing.T) {
	if got := FormatMonth(core.NewYearMonth(2024, 3)); got != "2024-03" {
		t.Errorf("FormatMonth() = %q, want 2024-03", got)
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"amount": 42.5, "date": "2024-03-01", "source": "salary"}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.IsJSON() {
		t.Error("expected IsJSON() to be true")
	}

	d := p.Draft(core.KindIncome)
	if d.Amount != "42.5" || d.Date != "2024-03-01" || d.Source != "salary" {
		t.Errorf("Draft() = %+v", d)
	}
	if p.Values().Get("source") != "salary" {
		t.Errorf("Values() = %v", p.Values())
	}
}

func TestRequestBodyParser_JSONNumberRoundsHalfUp(t *testing.T) {
	body := `{"kind": "expense", "amount": 19.995, "date": "2024-03-01", "category": "fun"}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tx, err := p.Draft(core.KindExpense).Transaction("")
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if tx.Amount.Cents != 2000 {
		t.Errorf("amount = %d cents, want 2000", tx.Amount.Cents)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "kind=expense&amount=12%2C50&date=2024-03-05&category=groceries&reason=weekly+shop%01"
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.IsJSON() {
		t.Error("expected IsJSON() to be false for form data")
	}

	d := p.Draft(core.KindExpense)
	if d.Amount != "12,50" {
		t.Errorf("Amount = %q, want 12,50", d.Amount)
	}
	if d.Reason != "weekly shop" {
		t.Errorf("Reason = %q, control characters must be dropped", d.Reason)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"amount":`))

	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(""))

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v := p.Get("nonexistent"); v != "" {
		t.Errorf("Get() = %q, want empty", v)
	}
}

func TestConfirmed(t *testing.T) {
	tests := []struct {
		target string
		body   string
		want   bool
	}{
		{"/transactions/expense/1", "", false},
		{"/transactions/expense/1?confirm=true", "", true},
		{"/transactions/expense/1", "confirm=yes", true},
		{"/transactions/expense/1", "confirm=no", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodDelete, tt.target, strings.NewReader(tt.body))
		p := NewRequestBodyParser(req)
		_ = p.Parse()
		if got := confirmed(req, p); got != tt.want {
			t.Errorf("confirmed(%q, %q) = %v, want %v", tt.target, tt.body, got, tt.want)
		}
	}
}
