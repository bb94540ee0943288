package app

import (
	"errors"
	"slices"

	"bilancio/internal/core"
	"bilancio/internal/report"
)

// Reduce returns the state that follows s after e. It never modifies s and does no I/O.
// registry labels the category breakdown; nil means core.DefaultRegistry.
func Reduce(s State, e Event, registry *core.Registry) State {
	next := s
	next.Banners = slices.Clone(s.Banners)
	recompute := false

	switch e := e.(type) {
	case PrincipalChanged:
		if e.Principal.ID == s.Principal.ID {
			next.Principal = e.Principal
			return next
		}
		next.Principal = e.Principal
		next.Generation = s.Generation + 1
		next.Expenses, next.Incomes = nil, nil
		next.LoadingExpenses = !e.Principal.IsZero()
		next.LoadingIncomes = !e.Principal.IsZero()
		next.FormError = nil
		next.Advice = AdviceState{Status: AdviceIdle}
		next.Banners = withoutBanner(next.Banners, BannerStore)
		recompute = true

	case SnapshotReceived:
		if e.Generation != s.Generation || !s.SignedIn() {
			return s
		}
		records := slices.Clone(e.Records)
		switch e.Kind {
		case core.KindExpense:
			next.Expenses, next.LoadingExpenses = records, false
		case core.KindIncome:
			next.Incomes, next.LoadingIncomes = records, false
		default:
			return s
		}
		recompute = true

	case SubscriptionFailed:
		if e.Generation != s.Generation || !s.SignedIn() {
			return s
		}
		switch e.Kind {
		case core.KindExpense:
			next.LoadingExpenses = false
		case core.KindIncome:
			next.LoadingIncomes = false
		}
		next.Banners = withBanner(next.Banners, BannerStore, e.Err)

	case MonthNavigated:
		next.Month = s.Month.Add(e.Delta)
		recompute = next.Month != s.Month

	case MonthSelected:
		next.Month = e.Month
		recompute = next.Month != s.Month

	case FormRejected:
		field := ""
		var verr *core.ValidationError
		if errors.As(e.Err, &verr) {
			field = verr.Field
		}
		next.FormError = &FormError{ID: e.ID, Field: field, Message: Message(e.Err), Draft: e.Draft}

	case MutationSucceeded:
		next.FormError = nil

	case MutationFailed:
		next.Banners = withBanner(next.Banners, BannerStore, e.Err)

	case AuthFailed:
		next.Banners = withBanner(next.Banners, BannerAuth, e.Err)

	case ConfigFailed:
		next.Banners = withBanner(next.Banners, BannerConfig, e.Err)

	case AdviceStarted:
		next.Advice = AdviceState{Status: AdviceLoading, Month: e.Month}

	case AdviceSucceeded:
		if e.Month != s.Month {
			next.Advice = AdviceState{Status: AdviceIdle}
			break
		}
		next.Advice = AdviceState{Status: AdviceReady, Month: e.Month, Text: e.Text}

	case AdviceFailed:
		if e.Month != s.Month {
			next.Advice = AdviceState{Status: AdviceIdle}
			break
		}
		next.Advice = AdviceState{Status: AdviceErrored, Month: e.Month, Error: Message(e.Err)}

	case BannerDismissed:
		if e.Kind != BannerConfig {
			next.Banners = withoutBanner(next.Banners, e.Kind)
		}

	default:
		return s
	}

	if recompute {
		next.View = report.Compute(next.Expenses, next.Incomes, next.Month, registry)
		if next.Advice.Status != AdviceLoading && next.Advice.Month != next.Month {
			next.Advice = AdviceState{Status: AdviceIdle}
		}
	}
	return next
}

// withBanner replaces any banner of the same kind so each kind is shown at most once.
func withBanner(banners []Banner, kind BannerKind, err error) []Banner {
	banners = withoutBanner(banners, kind)
	return append(banners, Banner{Kind: kind, Message: Message(err)})
}

func withoutBanner(banners []Banner, kind BannerKind) []Banner {
	return slices.DeleteFunc(banners, func(b Banner) bool { return b.Kind == kind })
}

// Message turns an error into the text shown on the page.
func Message(err error) string {
	var (
		verr   *core.ValidationError
		cerr   *core.ConfigError
		aerr   *core.AuthError
		serr   *core.StoreError
		adverr *core.AdviceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Err.Error()
	case errors.As(err, &cerr):
		return cerr.Error()
	case errors.Is(err, core.ErrSignInCancelled):
		return "Sign-in was cancelled."
	case errors.Is(err, core.ErrNotSignedIn):
		return "Please sign in first."
	case errors.As(err, &aerr):
		if aerr.Op == "sign_out" {
			return "Sign-out failed. You are still signed in."
		}
		return "Sign-in failed. Please try again."
	case errors.Is(err, core.ErrNotFound):
		return "That transaction no longer exists."
	case errors.As(err, &serr):
		if serr.Op == "subscribe" {
			return "Could not load your transactions."
		}
		return "Could not save your change. Please try again."
	case errors.Is(err, core.ErrInsufficientData):
		return "Not enough data this month to generate advice."
	case errors.Is(err, core.ErrEmptyAdvice):
		return "The advice service returned nothing. Try again later."
	case errors.As(err, &adverr):
		return "Advice is unavailable right now. Try again later."
	default:
		return err.Error()
	}
}
