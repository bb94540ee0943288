package session

import (
	"context"
	"net/url"

	"bilancio/internal/core"
)

// StaticProvider signs everyone in as one fixed principal. Development only.
type StaticProvider struct {
	principal   core.Principal
	callbackURL string
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider(p core.Principal, callbackURL string) *StaticProvider {
	return &StaticProvider{principal: p, callbackURL: callbackURL}
}

func (s *StaticProvider) AuthCodeURL(state string) string {
	q := url.Values{"code": {"static"}, "state": {state}}
	return s.callbackURL + "?" + q.Encode()
}

func (s *StaticProvider) Authenticate(_ context.Context, grant Grant) (core.Principal, error) {
	if grant.Error != "" || grant.Code == "" {
		return core.Principal{}, core.ErrSignInCancelled
	}
	return s.principal, nil
}

func (s *StaticProvider) SignOut(context.Context, core.Principal) error {
	return nil
}
