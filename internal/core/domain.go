package core

import (
	"strings"
	"time"
)

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

type (
	// Kind discriminates the two transaction variants. Each kind lives in its own collection.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Details is the variant-specific part of a Transaction: ExpenseDetails or IncomeDetails.
	Details interface {
		Kind() Kind
		validate() error
	}

	ExpenseDetails struct {
		Category string // Category code, see Registry
		Reason   string // Optional free text
	}

	IncomeDetails struct {
		Source string
	}

	// Transaction is one recorded movement of money. ID is assigned by the store on creation.
	Transaction struct {
		ID      string
		Amount  Money
		Date    Date
		Details Details
	}

	// Principal is the signed-in identity handed out by the identity provider.
	Principal struct {
		ID        string
		Name      string
		AvatarURL string
	}
)

func (ExpenseDetails) Kind() Kind { return KindExpense }
func (IncomeDetails) Kind() Kind  { return KindIncome }

func (d ExpenseDetails) validate() error {
	if strings.TrimSpace(d.Category) == "" {
		return &ValidationError{Field: "category", Err: ErrMissingCategory}
	}
	if len(d.Reason) > 200 {
		return &ValidationError{Field: "reason", Err: ErrReasonTooLong}
	}
	return nil
}

func (d IncomeDetails) validate() error {
	if strings.TrimSpace(d.Source) == "" {
		return &ValidationError{Field: "source", Err: ErrMissingSource}
	}
	if len(d.Source) > 200 {
		return &ValidationError{Field: "source", Err: ErrSourceTooLong}
	}
	return nil
}

// Kinds returns every transaction kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindExpense, KindIncome}
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindExpense, KindIncome:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts "expense", "income" and their plural collection names.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	if !k.IsValid() {
		return "", &ValidationError{Field: "kind", Err: ErrUnknownKind}
	}
	return k, nil
}

// NewExpense builds an expense variant.
func NewExpense(id string, amount Money, date Date, category, reason string) Transaction {
	return Transaction{
		ID:      id,
		Amount:  amount,
		Date:    date,
		Details: ExpenseDetails{Category: category, Reason: reason},
	}
}

// NewIncome builds an income variant.
func NewIncome(id string, amount Money, date Date, source string) Transaction {
	return Transaction{
		ID:      id,
		Amount:  amount,
		Date:    date,
		Details: IncomeDetails{Source: source},
	}
}

// Kind returns the variant of t, or "" when Details is missing.
func (t Transaction) Kind() Kind {
	if t.Details == nil {
		return ""
	}
	return t.Details.Kind()
}

// Expense returns the expense details and true when t is an expense.
func (t Transaction) Expense() (ExpenseDetails, bool) {
	d, ok := t.Details.(ExpenseDetails)
	return d, ok
}

// Income returns the income details and true when t is an income.
func (t Transaction) Income() (IncomeDetails, bool) {
	d, ok := t.Details.(IncomeDetails)
	return d, ok
}

// Validate checks the fields a user must supply before a transaction reaches the store.
func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if err := t.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if t.Details == nil {
		return &ValidationError{Field: "kind", Err: ErrUnknownKind}
	}
	return t.Details.validate()
}

// WellFormed reports whether t can take part in aggregation: positive amount, a date and a variant.
func (t Transaction) WellFormed() bool {
	return t.Amount.Cents > 0 && !t.Date.IsZero() && t.Details != nil
}

// IsZero reports whether the principal is absent.
func (p Principal) IsZero() bool {
	return p.ID == ""
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day of t, keeping its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// YearMonth returns the calendar month the date falls in.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
