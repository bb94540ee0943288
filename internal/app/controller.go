package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"bilancio/internal/advice"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/session"
	"bilancio/internal/store"
)

// Sessions is the part of *session.Manager the controller depends on.
type Sessions interface {
	Current() (core.Principal, bool)
	SignIn(ctx context.Context, grant session.Grant) (core.Principal, error)
	SignOut(ctx context.Context) error
	OnChange(fn func(core.Principal)) (cancel func())
}

var _ Sessions = (*session.Manager)(nil)

type Options struct {
	Registry *core.Registry
	Now      func() time.Time
	Logger   *applog.Logger
}

// Controller drives the State of one browser session. It follows the session's
// principal, keeps one subscription per kind, and routes every user action through
// Reduce.
type Controller struct {
	sessions    Sessions
	collections store.Collections
	advice      *advice.Requester
	registry    *core.Registry
	logger      *applog.Logger

	// dispatchMu serialises reduce and listener notification so listeners see states in order.
	dispatchMu sync.Mutex
	mu         sync.RWMutex
	state      State
	listeners  map[uint64]func(State)
	nextID     uint64

	// subsMu guards the subscription swap. Unsubscribe runs with subsMu held, never dispatchMu.
	subsMu        sync.Mutex
	subs          []store.Subscription
	subscribedFor string
	closed        bool

	stopSession func()
}

func NewController(sessions Sessions, collections store.Collections, requester *advice.Requester, opts Options) *Controller {
	if opts.Registry == nil {
		opts.Registry = core.DefaultRegistry
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if requester == nil {
		requester = advice.NewRequester(nil)
	}

	c := &Controller{
		sessions:    sessions,
		collections: collections,
		advice:      requester,
		registry:    opts.Registry,
		logger:      opts.Logger.WithComponent(applog.ComponentApp),
		state:       NewState(core.CurrentYearMonth(opts.Now())),
		listeners:   make(map[uint64]func(State)),
	}
	c.stopSession = sessions.OnChange(c.follow)
	if p, ok := sessions.Current(); ok {
		c.follow(p)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Registry returns the category registry used for labels.
func (c *Controller) Registry() *core.Registry {
	return c.registry
}

// OnState registers fn to run after every state change. fn runs synchronously and must
// not call back into methods that change state.
func (c *Controller) OnState(fn func(State)) (cancel func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Dispatch applies e and notifies listeners. It returns the resulting state.
func (c *Controller) Dispatch(e Event) State {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	next := Reduce(c.state, e, c.registry)
	c.state = next
	listeners := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// follow moves the subscriptions to principal p. The previous subscriptions are
// cancelled before the new ones start.
func (c *Controller) follow(p core.Principal) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.closed {
		return
	}
	if p.ID == c.subscribedFor && (p.IsZero() || len(c.subs) > 0) {
		c.Dispatch(PrincipalChanged{Principal: p})
		return
	}

	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
	c.subscribedFor = p.ID

	gen := c.Dispatch(PrincipalChanged{Principal: p}).Generation
	if p.IsZero() {
		c.logger.Info("Session signed out, subscriptions released")
		return
	}

	for _, kind := range core.Kinds() {
		col := c.collections.Collection(p.ID, kind)
		sub := col.Subscribe(
			func(records []core.Transaction) {
				c.Dispatch(SnapshotReceived{Kind: kind, Generation: gen, Records: records})
			},
			func(err error) {
				c.logger.Warn("Subscription failed", applog.FieldCollection, col.Path().String(), applog.FieldError, err)
				c.Dispatch(SubscriptionFailed{Kind: kind, Generation: gen, Err: err})
			},
		)
		c.subs = append(c.subs, sub)
	}
	c.logger.Info("Subscribed to collections", applog.FieldPrincipalID, p.ID, "generation", gen)
}

// SignIn completes the provider flow. Failures show an auth banner.
func (c *Controller) SignIn(ctx context.Context, grant session.Grant) (core.Principal, error) {
	p, err := c.sessions.SignIn(ctx, grant)
	if err != nil {
		c.Dispatch(AuthFailed{Err: err})
		return core.Principal{}, err
	}
	c.Dispatch(BannerDismissed{Kind: BannerAuth})
	return p, nil
}

// SignOut ends the session. On failure the principal stays and an auth banner is shown.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.sessions.SignOut(ctx); err != nil {
		c.Dispatch(AuthFailed{Err: err})
		return err
	}
	c.Dispatch(BannerDismissed{Kind: BannerAuth})
	return nil
}

// Navigate moves the selected month by delta months.
func (c *Controller) Navigate(delta int) State {
	return c.Dispatch(MonthNavigated{Delta: delta})
}

// SelectMonth jumps to month.
func (c *Controller) SelectMonth(month core.YearMonth) State {
	return c.Dispatch(MonthSelected{Month: month})
}

// DismissBanner hides a recoverable banner.
func (c *Controller) DismissBanner(kind BannerKind) State {
	return c.Dispatch(BannerDismissed{Kind: kind})
}

// Add validates d and creates the record. Invalid drafts never reach the store.
// The new snapshot arrives through the subscription.
func (c *Controller) Add(ctx context.Context, d Draft) (string, error) {
	t, err := c.validate(d, "")
	if err != nil {
		return "", err
	}
	col, err := c.collection(d.Kind)
	if err != nil {
		return "", err
	}
	id, err := col.Create(ctx, t)
	if err != nil {
		c.Dispatch(MutationFailed{Err: err})
		return "", err
	}
	c.Dispatch(MutationSucceeded{})
	return id, nil
}

// Edit replaces record id with d.
func (c *Controller) Edit(ctx context.Context, id string, d Draft) error {
	t, err := c.validate(d, id)
	if err != nil {
		return err
	}
	col, err := c.collection(d.Kind)
	if err != nil {
		return err
	}
	if err := col.Update(ctx, id, t); err != nil {
		c.Dispatch(MutationFailed{Err: err})
		return err
	}
	c.Dispatch(MutationSucceeded{})
	return nil
}

// Delete removes record id of kind.
func (c *Controller) Delete(ctx context.Context, kind core.Kind, id string) error {
	if !kind.IsValid() {
		return &core.ValidationError{Field: "kind", Err: core.ErrUnknownKind}
	}
	col, err := c.collection(kind)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, id); err != nil {
		c.Dispatch(MutationFailed{Err: err})
		return err
	}
	c.Dispatch(MutationSucceeded{})
	return nil
}

// RequestAdvice asks for advice on the selected month. A month without data fails with
// core.ErrInsufficientData and contacts nothing. A second call while one is in flight
// returns core.ErrAdviceBusy and leaves the state alone.
func (c *Controller) RequestAdvice(ctx context.Context) error {
	s := c.State()
	if !s.SignedIn() {
		return &core.AuthError{Op: applog.OpAdvice, Err: core.ErrNotSignedIn}
	}
	if c.advice.Busy() {
		return &core.AdviceError{Err: core.ErrAdviceBusy}
	}
	if s.View.HasData() {
		c.Dispatch(AdviceStarted{Month: s.Month})
	}

	text, err := c.advice.Request(ctx, s.View, s.Month.Label())
	if errors.Is(err, core.ErrAdviceBusy) {
		return err
	}
	if err != nil {
		c.Dispatch(AdviceFailed{Month: s.Month, Err: err})
		return err
	}
	c.Dispatch(AdviceSucceeded{Month: s.Month, Text: text})
	return nil
}

// Close releases the session listener and every subscription.
func (c *Controller) Close() {
	c.stopSession()

	c.subsMu.Lock()
	subs := c.subs
	c.subs = nil
	c.closed = true
	c.subsMu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}

	c.mu.Lock()
	c.listeners = make(map[uint64]func(State))
	c.mu.Unlock()
}

func (c *Controller) validate(d Draft, id string) (core.Transaction, error) {
	t, err := d.Transaction(id)
	if err != nil {
		c.Dispatch(FormRejected{ID: id, Draft: d, Err: err})
		return core.Transaction{}, err
	}
	return t, nil
}

func (c *Controller) collection(kind core.Kind) (store.Collection, error) {
	p, ok := c.sessions.Current()
	if !ok {
		return nil, &core.AuthError{Op: "mutate", Err: core.ErrNotSignedIn}
	}
	return c.collections.Collection(p.ID, kind), nil
}
