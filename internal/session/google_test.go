package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"bilancio/internal/core"
)

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	g := NewGoogleProvider("client-id", "secret", "https://app.example.com/auth/callback")
	u := g.AuthCodeURL("state-1")

	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "state=state-1")
	assert.Contains(t, u, "prompt=select_account")
}

func TestGoogleProvider_AuthenticateCancelled(t *testing.T) {
	g := NewGoogleProvider("id", "secret", "https://app/cb")

	_, err := g.Authenticate(context.Background(), Grant{Error: "access_denied"})
	assert.ErrorIs(t, err, core.ErrSignInCancelled)

	_, err = g.Authenticate(context.Background(), Grant{})
	assert.ErrorIs(t, err, core.ErrSignInCancelled)

	_, err = g.Authenticate(context.Background(), Grant{Error: "server_error"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrSignInCancelled)
}

func TestGoogleProvider_SignOutRevokes(t *testing.T) {
	var revoked string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		revoked = r.PostForm.Get("token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGoogleProvider("id", "secret", "https://app/cb")
	g.revokeURL = srv.URL
	g.tokens["u1"] = &oauth2.Token{AccessToken: "access-123"}

	require.NoError(t, g.SignOut(context.Background(), core.Principal{ID: "u1"}))
	assert.Equal(t, "access-123", revoked)

	// A second sign-out has nothing left to revoke.
	revoked = ""
	require.NoError(t, g.SignOut(context.Background(), core.Principal{ID: "u1"}))
	assert.Empty(t, revoked)
}

func TestGoogleProvider_SignOutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewGoogleProvider("id", "secret", "https://app/cb")
	g.revokeURL = srv.URL
	g.tokens["u1"] = &oauth2.Token{AccessToken: "t"}

	assert.Error(t, g.SignOut(context.Background(), core.Principal{ID: "u1"}))
}
