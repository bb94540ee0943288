package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec(secret, time.Hour)
	p := core.Principal{ID: "u1", Name: "Ada", AvatarURL: "https://example.com/a.png"}

	token, err := codec.Encode("sess-1", p)
	require.NoError(t, err)

	sid, got, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sid)
	assert.Equal(t, p, got)
}

func TestTokenCodec_AnonymousSession(t *testing.T) {
	codec := NewTokenCodec(secret, time.Hour)
	token, err := codec.Encode("sess-2", core.Principal{})
	require.NoError(t, err)

	sid, p, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-2", sid)
	assert.True(t, p.IsZero())
}

func TestTokenCodec_Rejects(t *testing.T) {
	codec := NewTokenCodec(secret, time.Hour)
	token, err := codec.Encode("sess", core.Principal{ID: "u1"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenCodec([]byte("another-secret-another-secret-00"), time.Hour)
		_, _, err := other.Decode(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenCodec(secret, time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, _, err := later.Decode(token)
		assert.Error(t, err)
	})

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		_, _, err := codec.Decode(parts[0] + "." + parts[1] + "x." + parts[2])
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := codec.Decode("not-a-token")
		assert.Error(t, err)
	})
}

func TestStaticProvider(t *testing.T) {
	p := core.Principal{ID: "dev", Name: "Developer"}
	sp := NewStaticProvider(p, "/auth/callback")

	assert.Equal(t, "/auth/callback?code=static&state=abc", sp.AuthCodeURL("abc"))

	got, err := sp.Authenticate(context.Background(), Grant{Code: "static"})
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = sp.Authenticate(context.Background(), Grant{Error: "access_denied"})
	assert.ErrorIs(t, err, core.ErrSignInCancelled)
	assert.NoError(t, sp.SignOut(context.Background(), p))
}
