// Package session tracks who is signed in for one browser session and notifies
// listeners whenever that identity changes.
package session

import (
	"context"

	"bilancio/internal/core"
)

//go:generate mockgen -destination=mocks/mock_provider.go -package=mock_session bilancio/internal/session Provider

// Grant is what the identity provider hands back on its redirect.
type Grant struct {
	Code  string
	State string
	// Error is set when the user declined or the provider refused.
	Error string
}

// Provider performs the sign-in ceremony with an external identity provider.
type Provider interface {
	// AuthCodeURL is where the browser goes to start signing in.
	AuthCodeURL(state string) string
	Authenticate(ctx context.Context, grant Grant) (core.Principal, error)
	SignOut(ctx context.Context, p core.Principal) error
}
