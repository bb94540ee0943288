package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bilancio/internal/advice"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/session"
	"bilancio/internal/store"
	appweb "bilancio/web"
)

// Deps is everything the server needs from the composition root.
type Deps struct {
	Collections store.Collections
	Provider    session.Provider
	Codec       *session.TokenCodec
	Generator   advice.Generator
	Registry    *core.Registry

	// Ready reports whether the backing services are reachable.
	Ready func(ctx context.Context) error

	Logger             *applog.Logger
	RateLimitPerMinute int
	SecureCookies      bool
	Now                func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	registry  *core.Registry
	logger    *applog.Logger
	httpLog   *applog.StructuredLogger
	now       func() time.Time
	ready     func(ctx context.Context) error
	started   time.Time

	sessions *sessionRegistry
	janitor  *cache.Janitor
	limiter  *ratelimit.Limiter
	detector *security.Detector

	// configErr is set on a degraded server started without a usable configuration.
	configErr error

	// closing is closed when shutdown starts so event streams end before the listener waits on them.
	closing      chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Codec == nil || deps.Provider == nil || deps.Collections == nil {
		return nil, errors.New("http: collections, provider and codec are required")
	}
	if deps.Registry == nil {
		deps.Registry = core.DefaultRegistry
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Generator == nil {
		deps.Generator = advice.Disabled{}
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	if deps.RateLimitPerMinute <= 0 {
		deps.RateLimitPerMinute = ratelimit.DefaultConfig().RequestsPerMinute
	}

	s, err := newBaseServer(addr, deps.Registry, deps.Logger, deps.Now)
	if err != nil {
		return nil, err
	}
	s.ready = deps.Ready
	s.sessions = newSessionRegistry(deps, deps.Logger.WithComponent(applog.ComponentSession))
	s.janitor = cache.NewJanitor(deps.Logger.WithComponent(applog.ComponentCache).Logger, s.sessions)
	s.janitor.Start(5 * time.Minute)

	cfg := ratelimit.DefaultConfig()
	cfg.RequestsPerMinute = deps.RateLimitPerMinute
	s.limiter = ratelimit.NewLimiter(cfg)

	mux := http.NewServeMux()
	s.mountStatic(mux)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /report.pdf", s.handleReport)
	mux.HandleFunc("GET /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /month", s.handleMonth)
	mux.HandleFunc("POST /transactions", s.handleCreate)
	mux.HandleFunc("GET /transactions/{kind}/{id}/edit", s.handleEditForm)
	mux.HandleFunc("POST /transactions/{kind}/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /transactions/{kind}/{id}", s.handleDelete)
	mux.HandleFunc("POST /transactions/{kind}/{id}/delete", s.handleDelete)
	mux.HandleFunc("POST /advice", s.handleAdvice)
	mux.HandleFunc("POST /errors/dismiss", s.handleDismiss)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.Handler = s.chain(mux)
	return s, nil
}

func newBaseServer(addr string, registry *core.Registry, logger *applog.Logger, now func() time.Time) (*Server, error) {
	t, err := parseTemplates(registry)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	httpLogger := logger.WithComponent(applog.ComponentHTTP)
	return &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates: t,
		registry:  registry,
		logger:    httpLogger,
		httpLog:   applog.NewStructuredLogger(httpLogger),
		now:       now,
		started:   now(),
		closing:   make(chan struct{}),
		detector:  security.NewDetector(logger.WithComponent(applog.ComponentSecurity).Logger),
	}, nil
}

func (s *Server) mountStatic(mux *http.ServeMux) {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
		return
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssets(3600)(static))
}

// chain wraps h with request ids, logging, request inspection, security headers and,
// when configured, rate limiting of mutating requests.
func (s *Server) chain(h http.Handler) http.Handler {
	h = security.Headers(security.DefaultHeadersConfig())(h)
	if s.limiter != nil {
		h = s.limiter.Middleware(s.detector.ClientIP, s.handleRateLimited)(h)
	}
	h = s.detector.Middleware(h)
	h = s.logRequests(h)
	h = applog.RequestIDMiddleware()(h)
	return applog.Middleware(s.logger)(h)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.httpLog.LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), s.detector.ClientIP(r))
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		"client_ip", s.detector.ClientIP(r),
		"method", r.Method,
		"path", r.URL.Path)
	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please wait a moment.").Write(w)
		return
	}
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// Shutdown stops background work, releases every browser session and shuts the
// listener down. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.closing)
		shutdownErr = s.Server.Shutdown(ctx)
		if s.janitor != nil {
			s.janitor.Stop()
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		if s.sessions != nil {
			s.sessions.Close()
		}
	})
	return shutdownErr
}

// responseWriter captures the status code. It forwards Flush for the event stream.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wrote {
		rw.statusCode = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the backing services.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.configErr != nil:
		checks["config"] = "failed: " + s.configErr.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	case s.ready != nil:
		if err := s.ready(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	default:
		checks["backend"] = "ok"
	}

	if s.sessions != nil {
		checks["sessions"] = strconv.Itoa(s.sessions.Size())
	}
	if s.limiter != nil {
		checks["rate_limiter"] = map[string]any{
			"active_clients": s.limiter.ActiveClients(),
			"limited":        s.limiter.Hits(),
		}
	}
	checks["suspicious_requests"] = s.detector.SuspiciousCount()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}
