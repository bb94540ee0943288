package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/advice"
	"bilancio/internal/app"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/session"
	"bilancio/internal/store"
)

const (
	sessionCookie = "bilancio_session"
	maxSessions   = 1000
)

// browserSession is everything the server keeps for one browser: its identity, the
// controller driving its state and the pending OAuth state, if any.
type browserSession struct {
	id         string
	manager    *session.Manager
	controller *app.Controller

	mu         sync.Mutex
	oauthState string
}

func (bs *browserSession) beginSignIn() string {
	state := uuid.NewString()
	bs.mu.Lock()
	bs.oauthState = state
	bs.mu.Unlock()
	return state
}

// takeOAuthState returns and clears the pending state so a callback cannot be replayed.
func (bs *browserSession) takeOAuthState() string {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	state := bs.oauthState
	bs.oauthState = ""
	return state
}

// sessionRegistry maps cookie session ids to live browser sessions. Idle sessions
// expire after the token TTL and release their subscriptions.
type sessionRegistry struct {
	codec       *session.TokenCodec
	provider    session.Provider
	collections store.Collections
	generator   advice.Generator
	registry    *core.Registry
	now         func() time.Time
	logger      *applog.Logger
	secure      bool

	mu   sync.Mutex
	live *cache.LRU[*browserSession]
}

func newSessionRegistry(deps Deps, logger *applog.Logger) *sessionRegistry {
	sr := &sessionRegistry{
		codec:       deps.Codec,
		provider:    deps.Provider,
		collections: deps.Collections,
		generator:   deps.Generator,
		registry:    deps.Registry,
		now:         deps.Now,
		logger:      logger,
		secure:      deps.SecureCookies,
	}
	sr.live = cache.NewLRU[*browserSession](maxSessions, deps.Codec.TTL(),
		cache.WithEvict(func(id string, bs *browserSession) {
			bs.controller.Close()
			logger.Debug("Browser session released", applog.FieldSessionID, id)
		}))
	return sr
}

// resolve returns the caller's browser session, creating one when the cookie is
// missing, invalid or refers to a session this process no longer holds.
func (sr *sessionRegistry) resolve(w http.ResponseWriter, r *http.Request) *browserSession {
	var (
		sid       string
		principal core.Principal
	)
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, p, err := sr.codec.Decode(c.Value); err == nil {
			sid, principal = id, p
		} else {
			sr.logger.DebugContext(r.Context(), "Discarding session cookie", applog.FieldError, err)
		}
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sid != "" {
		if bs, ok := sr.live.Get(sid); ok {
			return bs
		}
	} else {
		sid = uuid.NewString()
	}

	bs := sr.create(sid, principal)
	sr.live.Set(sid, bs)
	if err := sr.writeCookie(w, bs); err != nil {
		sr.logger.ErrorContext(r.Context(), "Failed to issue session cookie", applog.FieldError, err)
	}
	return bs
}

func (sr *sessionRegistry) create(sid string, p core.Principal) *browserSession {
	manager := session.NewManager(sr.provider)
	if !p.IsZero() {
		manager.Restore(p)
	}
	logger := sr.logger.With(applog.FieldSessionID, sid)
	controller := app.NewController(manager, sr.collections, advice.NewRequester(sr.generator), app.Options{
		Registry: sr.registry,
		Now:      sr.now,
		Logger:   logger,
	})
	return &browserSession{id: sid, manager: manager, controller: controller}
}

// writeCookie re-issues the session cookie with the current principal.
func (sr *sessionRegistry) writeCookie(w http.ResponseWriter, bs *browserSession) error {
	p, _ := bs.manager.Current()
	token, err := sr.codec.Encode(bs.id, p)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sr.codec.TTL().Seconds()),
		HttpOnly: true,
		Secure:   sr.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Size is the number of browser sessions held in memory.
func (sr *sessionRegistry) Size() int {
	return sr.live.Size()
}

func (sr *sessionRegistry) CleanExpired() int {
	return sr.live.CleanExpired()
}

// Close releases every browser session.
func (sr *sessionRegistry) Close() {
	sr.live.Purge()
}
