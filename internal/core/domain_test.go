package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -500}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestTransactionValidate(t *testing.T) {
	day := NewDate(2024, 3, 5)
	good := []Transaction{
		NewExpense("", Money{Cents: 100}, day, "groceries", ""),
		NewExpense("", Money{Cents: 100}, day, "unknown_code", "still accepted"),
		NewIncome("", Money{Cents: 100000}, day, "salary"),
	}
	for i, tx := range good {
		if err := tx.Validate(); err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
	}

	bads := []struct {
		tx    Transaction
		field string
		err   error
	}{
		{NewExpense("", Money{Cents: 0}, day, "groceries", ""), "amount", ErrInvalidAmount},
		{NewExpense("", Money{Cents: -500}, day, "groceries", ""), "amount", ErrInvalidAmount},
		{NewExpense("", Money{Cents: 1}, Date{}, "groceries", ""), "date", ErrMissingDate},
		{NewExpense("", Money{Cents: 1}, day, " ", ""), "category", ErrMissingCategory},
		{NewIncome("", Money{Cents: 1}, day, ""), "source", ErrMissingSource},
		{Transaction{Amount: Money{Cents: 1}, Date: day}, "kind", ErrUnknownKind},
	}
	for i, tc := range bads {
		err := tc.tx.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
		if verr.Field != tc.field || !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %s/%v, got %s/%v", i, tc.field, tc.err, verr.Field, verr.Err)
		}
	}
}

func TestTransactionVariants(t *testing.T) {
	exp := NewExpense("e1", Money{Cents: 1}, NewDate(2024, 1, 1), "fun", "movie")
	if exp.Kind() != KindExpense {
		t.Fatalf("expected expense kind, got %q", exp.Kind())
	}
	if d, ok := exp.Expense(); !ok || d.Category != "fun" || d.Reason != "movie" {
		t.Fatalf("unexpected expense details %+v ok=%v", d, ok)
	}
	if _, ok := exp.Income(); ok {
		t.Fatalf("expense must not expose income details")
	}

	inc := NewIncome("i1", Money{Cents: 1}, NewDate(2024, 1, 1), "salary")
	if inc.Kind() != KindIncome {
		t.Fatalf("expected income kind, got %q", inc.Kind())
	}
	if (Transaction{}).Kind() != "" {
		t.Fatalf("missing details must have empty kind")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"expense": KindExpense, "expenses": KindExpense, " Income ": KindIncome, "incomes": KindIncome} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("transfer"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-02-29" || d.YearMonth() != (YearMonth{Year: 2024, Month: time.February}) {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := ParseDate(""); !errors.Is(err, ErrMissingDate) {
		t.Fatalf("expected ErrMissingDate, got %v", err)
	}
	if _, err := ParseDate("2024-13-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateOfDropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	d := DateOf(time.Date(2024, 3, 31, 23, 30, 0, 0, loc))
	if d.String() != "2024-03-31" {
		t.Fatalf("expected local calendar date kept, got %s", d)
	}
}

func TestYearMonth(t *testing.T) {
	mar := NewYearMonth(2024, 3)
	if mar.Add(-3) != (YearMonth{Year: 2023, Month: time.December}) {
		t.Fatalf("unexpected %v", mar.Add(-3))
	}
	if mar.Add(10) != (YearMonth{Year: 2025, Month: time.January}) {
		t.Fatalf("unexpected %v", mar.Add(10))
	}
	if !mar.Contains(NewDate(2024, 3, 31)) || mar.Contains(NewDate(2024, 4, 1)) || mar.Contains(NewDate(2023, 3, 15)) {
		t.Fatalf("month containment must be year and month exact")
	}
	if mar.Label() != "March 2024" || mar.String() != "2024-03" {
		t.Fatalf("unexpected label %q / %q", mar.Label(), mar.String())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Category{Code: "a", Label: "A"}, Category{Code: "a", Label: "dup"}, Category{Code: "b", Label: "B"})
	if r.Label("a") != "A" || r.Label("zzz") != FallbackLabel {
		t.Fatalf("unexpected labels")
	}
	if len(r.Categories()) != 2 || !r.Has("b") || r.Has("zzz") {
		t.Fatalf("unexpected registry contents %v", r.Categories())
	}
	if DefaultRegistry.Label("groceries") != "Groceries" {
		t.Fatalf("default registry missing groceries")
	}
}
