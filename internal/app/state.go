// Package app holds the application state of one browser session and the controller
// that feeds it from the session manager, the store and the advice service.
package app

import (
	"bilancio/internal/core"
	"bilancio/internal/report"
)

type BannerKind string

const (
	BannerConfig BannerKind = "config"
	BannerAuth   BannerKind = "auth"
	BannerStore  BannerKind = "store"
)

// Banner is a page-level error message. Config banners cannot be dismissed.
type Banner struct {
	Kind    BannerKind
	Message string
}

func (b Banner) Dismissible() bool {
	return b.Kind != BannerConfig
}

type AdviceStatus string

const (
	AdviceIdle    AdviceStatus = "idle"
	AdviceLoading AdviceStatus = "loading"
	AdviceReady   AdviceStatus = "ready"
	AdviceErrored AdviceStatus = "failed"
)

type AdviceState struct {
	Status AdviceStatus
	Month  core.YearMonth
	Text   string
	Error  string
}

// Draft is the raw content of the add or edit form.
type Draft struct {
	Kind     core.Kind
	Amount   string
	Date     string
	Category string
	Reason   string
	Source   string
}

// FormError is the inline message shown next to a rejected form. ID is empty for the
// add form. Draft keeps what the user typed so it can be corrected.
type FormError struct {
	ID      string
	Field   string
	Message string
	Draft   Draft
}

// State is an immutable snapshot of everything the page shows. Values are replaced by
// Reduce, never edited in place.
type State struct {
	Principal core.Principal
	Month     core.YearMonth

	Expenses []core.Transaction
	Incomes  []core.Transaction

	LoadingExpenses bool
	LoadingIncomes  bool

	Banners   []Banner
	FormError *FormError
	Advice    AdviceState

	View report.MonthlyView

	// Generation increases on every principal change. Snapshots tagged with an older
	// generation are dropped.
	Generation uint64
}

// NewState is the state of a fresh session looking at month.
func NewState(month core.YearMonth) State {
	s := State{Month: month, Advice: AdviceState{Status: AdviceIdle}}
	s.View = report.Compute(nil, nil, month, nil)
	return s
}

func (s State) SignedIn() bool {
	return !s.Principal.IsZero()
}

func (s State) Loading() bool {
	return s.LoadingExpenses || s.LoadingIncomes
}

// Banner returns the banner of kind, if shown.
func (s State) Banner(kind BannerKind) (Banner, bool) {
	for _, b := range s.Banners {
		if b.Kind == kind {
			return b, true
		}
	}
	return Banner{}, false
}

// Find returns the transaction of kind with id from the latest snapshot.
func (s State) Find(kind core.Kind, id string) (core.Transaction, bool) {
	records := s.Expenses
	if kind == core.KindIncome {
		records = s.Incomes
	}
	for _, t := range records {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}
