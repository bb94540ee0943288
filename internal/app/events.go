package app

import (
	"bilancio/internal/core"
)

// Event is one thing that happened to the session. Reduce is the only code that
// turns events into state.
type Event interface {
	event()
}

type (
	PrincipalChanged struct {
		Principal core.Principal
	}

	SnapshotReceived struct {
		Kind       core.Kind
		Generation uint64
		Records    []core.Transaction
	}

	SubscriptionFailed struct {
		Kind       core.Kind
		Generation uint64
		Err        error
	}

	MonthNavigated struct {
		Delta int
	}

	MonthSelected struct {
		Month core.YearMonth
	}

	FormRejected struct {
		ID    string
		Draft Draft
		Err   error
	}

	MutationSucceeded struct{}

	MutationFailed struct {
		Err error
	}

	AuthFailed struct {
		Err error
	}

	ConfigFailed struct {
		Err error
	}

	AdviceStarted struct {
		Month core.YearMonth
	}

	AdviceSucceeded struct {
		Month core.YearMonth
		Text  string
	}

	AdviceFailed struct {
		Month core.YearMonth
		Err   error
	}

	BannerDismissed struct {
		Kind BannerKind
	}
)

func (PrincipalChanged) event()   {}
func (SnapshotReceived) event()   {}
func (SubscriptionFailed) event() {}
func (MonthNavigated) event()     {}
func (MonthSelected) event()      {}
func (FormRejected) event()       {}
func (MutationSucceeded) event()  {}
func (MutationFailed) event()     {}
func (AuthFailed) event()         {}
func (ConfigFailed) event()       {}
func (AdviceStarted) event()      {}
func (AdviceSucceeded) event()    {}
func (AdviceFailed) event()       {}
func (BannerDismissed) event()    {}
