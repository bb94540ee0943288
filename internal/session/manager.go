package session

import (
	"context"
	"log/slog"
	"sync"

	"bilancio/internal/core"
)

// Manager owns the current principal of one browser session.
type Manager struct {
	provider Provider

	// transition serialises principal changes so listeners see them in order.
	transition sync.Mutex

	mu        sync.Mutex
	current   core.Principal
	listeners map[uint64]func(core.Principal)
	nextID    uint64
}

func NewManager(provider Provider) *Manager {
	return &Manager{
		provider:  provider,
		listeners: make(map[uint64]func(core.Principal)),
	}
}

// Current returns the signed-in principal, if any.
func (m *Manager) Current() (core.Principal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, !m.current.IsZero()
}

// AuthCodeURL starts the provider's sign-in flow.
func (m *Manager) AuthCodeURL(state string) string {
	return m.provider.AuthCodeURL(state)
}

// SignIn completes sign-in with grant. Failures, including the user cancelling, are
// *core.AuthError and leave the current principal unchanged.
func (m *Manager) SignIn(ctx context.Context, grant Grant) (core.Principal, error) {
	p, err := m.provider.Authenticate(ctx, grant)
	if err != nil {
		slog.WarnContext(ctx, "Sign-in failed", "component", "session", "error", err)
		return core.Principal{}, &core.AuthError{Op: "sign_in", Err: err}
	}
	if p.IsZero() {
		return core.Principal{}, &core.AuthError{Op: "sign_in", Err: core.ErrSignInCancelled}
	}
	slog.InfoContext(ctx, "Signed in", "component", "session", "principal_id", p.ID)
	m.set(p)
	return p, nil
}

// SignOut ends the session with the provider. On failure the principal stays signed in
// so the user can retry.
func (m *Manager) SignOut(ctx context.Context) error {
	p, ok := m.Current()
	if !ok {
		return nil
	}
	if err := m.provider.SignOut(ctx, p); err != nil {
		slog.WarnContext(ctx, "Sign-out failed", "component", "session", "principal_id", p.ID, "error", err)
		return &core.AuthError{Op: "sign_out", Err: err}
	}
	slog.InfoContext(ctx, "Signed out", "component", "session", "principal_id", p.ID)
	m.set(core.Principal{})
	return nil
}

// Restore installs a principal recovered from a verified session cookie.
func (m *Manager) Restore(p core.Principal) {
	m.set(p)
}

// OnChange registers fn to run after every principal transition: none to present,
// present to none, or one identity to another. The returned func removes it.
func (m *Manager) OnChange(fn func(core.Principal)) (cancel func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) set(p core.Principal) {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	changed := m.current.ID != p.ID
	m.current = p
	listeners := make([]func(core.Principal), 0, len(m.listeners))
	if changed {
		for _, fn := range m.listeners {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}
