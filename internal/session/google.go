package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"bilancio/internal/core"
)

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

// GoogleProvider signs users in with Google's OAuth2 authorization code flow and reads
// their profile from the userinfo endpoint.
type GoogleProvider struct {
	config    *oauth2.Config
	revokeURL string
	client    *http.Client

	mu     sync.Mutex
	tokens map[string]*oauth2.Token
}

var _ Provider = (*GoogleProvider)(nil)

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{oauth2v2.UserinfoProfileScope},
		},
		revokeURL: googleRevokeURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		tokens:    make(map[string]*oauth2.Token),
	}
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (g *GoogleProvider) Authenticate(ctx context.Context, grant Grant) (core.Principal, error) {
	if grant.Error == "access_denied" || (grant.Error == "" && grant.Code == "") {
		return core.Principal{}, core.ErrSignInCancelled
	}
	if grant.Error != "" {
		return core.Principal{}, fmt.Errorf("provider refused sign-in: %s", grant.Error)
	}

	token, err := g.config.Exchange(ctx, grant.Code)
	if err != nil {
		return core.Principal{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	svc, err := oauth2v2.NewService(ctx, option.WithTokenSource(g.config.TokenSource(ctx, token)))
	if err != nil {
		return core.Principal{}, fmt.Errorf("create userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return core.Principal{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Id == "" {
		return core.Principal{}, fmt.Errorf("userinfo response has no id")
	}

	g.mu.Lock()
	g.tokens[info.Id] = token
	g.mu.Unlock()

	return core.Principal{ID: info.Id, Name: info.Name, AvatarURL: info.Picture}, nil
}

// SignOut revokes the token obtained at sign-in. Principals restored from a cookie
// have no token in this process and sign out locally.
func (g *GoogleProvider) SignOut(ctx context.Context, p core.Principal) error {
	g.mu.Lock()
	token, ok := g.tokens[p.ID]
	delete(g.tokens, p.ID)
	g.mu.Unlock()
	if !ok {
		return nil
	}

	form := url.Values{"token": {token.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke token: status %d", resp.StatusCode)
	}
	return nil
}
