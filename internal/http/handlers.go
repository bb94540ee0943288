package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bilancio/internal/app"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/session"
)

var errConfirmRequired = errors.New("deletion must be confirmed")

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// renderPage writes the full page for the session's current state.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, bs *browserSession, status int, edit *editForm) {
	s.writePage(w, r, "index.html", newPage(bs.controller.State(), s.registry, s.today(), edit), status)
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, name string, data page, status int) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(html)
}

func (s *Server) dashboard(bs *browserSession, edit *editForm) ([]byte, error) {
	return s.renderTemplate("dashboard", newPage(bs.controller.State(), s.registry, s.today(), edit))
}

// finish completes a state-changing request. API clients get the state as JSON, htmx
// gets the refreshed dashboard and plain form posts are redirected back to the page,
// or shown the page with the error status.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, bs *browserSession, p *RequestBodyParser, err error, onSuccess func(*HTMXResponseBuilder)) {
	status := statusFor(err)
	if err != nil && status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path, applog.FieldError, err)
	}

	if wantsJSON(r, p) {
		out := encodeState(bs.controller.State(), s.registry)
		if err != nil {
			out.Error = app.Message(err)
		}
		writeJSON(w, status, out)
		return
	}

	if !isHTMX(r) {
		if err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.renderPage(w, r, bs, status, nil)
		return
	}

	html, rerr := s.dashboard(bs, nil)
	if rerr != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard render failed", applog.FieldError, rerr)
		ErrorResponse(http.StatusInternalServerError, "Could not render the page.").Write(w)
		return
	}
	b := NewHTMXResponse().Status(status).BodyHTML(html)
	if err != nil {
		b.TriggerErrorNotification(app.Message(err))
	} else if onSuccess != nil {
		onSuccess(b)
	}
	b.Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	if r.URL.Query().Has("month") {
		bs.controller.SelectMonth(ParseMonth(r.URL.Query(), bs.controller.State().Month))
	}
	s.renderPage(w, r, bs, http.StatusOK, nil)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	html, err := s.dashboard(bs, nil)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard render failed", applog.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Could not render the page.").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(html).Write(w)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	writeJSON(w, http.StatusOK, encodeState(bs.controller.State(), s.registry))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	http.Redirect(w, r, bs.manager.AuthCodeURL(bs.beginSignIn()), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	q := r.URL.Query()
	grant := session.Grant{Code: q.Get("code"), State: q.Get("state"), Error: q.Get("error")}

	expected := bs.takeOAuthState()
	if grant.Error == "" && (expected == "" || grant.State != expected) {
		err := &core.AuthError{Op: applog.OpSignIn, Err: errors.New("oauth state mismatch")}
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rejected sign-in callback",
			applog.FieldComponent, applog.ComponentSecurity, applog.FieldError, err)
		bs.controller.Dispatch(app.AuthFailed{Err: err})
		s.renderPage(w, r, bs, http.StatusUnauthorized, nil)
		return
	}

	if _, err := bs.controller.SignIn(r.Context(), grant); err != nil {
		s.renderPage(w, r, bs, statusFor(err), nil)
		return
	}
	if err := s.sessions.writeCookie(w, bs); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to issue session cookie", applog.FieldError, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	err := bs.controller.SignOut(r.Context())
	if err == nil {
		if cerr := s.sessions.writeCookie(w, bs); cerr != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to issue session cookie", applog.FieldError, cerr)
		}
	}
	s.finish(w, r, bs, nil, err, func(b *HTMXResponseBuilder) {
		b.TriggerSuccessNotification("Signed out.")
	})
}

// handleMonth moves the selected month by "delta" or jumps to "month".
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid request body.").Write(w)
		return
	}

	var st app.State
	if d, err := strconv.Atoi(p.Get("delta")); err == nil {
		st = bs.controller.Navigate(d)
	} else {
		st = bs.controller.SelectMonth(ParseMonth(p.Values(), bs.controller.State().Month))
	}
	s.finish(w, r, bs, p, nil, func(b *HTMXResponseBuilder) {
		b.TriggerMonthChanged(FormatMonth(st.Month))
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid request body.").Write(w)
		return
	}

	kind := core.Kind(strings.ToLower(p.Get("kind")))
	_, err := bs.controller.Add(r.Context(), p.Draft(kind))
	s.finish(w, r, bs, p, err, func(b *HTMXResponseBuilder) {
		b.TriggerTransactionSaved(string(kind)).
			TriggerFormReset().
			TriggerSuccessNotification(kindLabel(kind) + " saved.")
	})
}

// handleEditForm opens the edit form for one transaction.
func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	kind, err := core.ParseKind(r.PathValue("kind"))
	if err != nil {
		ErrorResponse(http.StatusNotFound, "Unknown transaction kind.").Write(w)
		return
	}
	t, ok := bs.controller.State().Find(kind, r.PathValue("id"))
	if !ok {
		if isHTMX(r) {
			ErrorResponse(http.StatusNotFound, app.Message(core.ErrNotFound)).Write(w)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	edit := &editForm{ID: t.ID, Draft: app.DraftOf(t)}
	if !isHTMX(r) {
		s.renderPage(w, r, bs, http.StatusOK, edit)
		return
	}
	html, err := s.dashboard(bs, edit)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard render failed", applog.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Could not render the page.").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(html).Write(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid request body.").Write(w)
		return
	}

	kind := core.Kind(strings.ToLower(r.PathValue("kind")))
	err := bs.controller.Edit(r.Context(), r.PathValue("id"), p.Draft(kind))
	s.finish(w, r, bs, p, err, func(b *HTMXResponseBuilder) {
		b.TriggerTransactionSaved(string(kind)).
			TriggerSuccessNotification(kindLabel(kind) + " updated.")
	})
}

// handleDelete removes a transaction. The request must carry confirm=yes.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid request body.").Write(w)
		return
	}

	kind := core.Kind(strings.ToLower(r.PathValue("kind")))
	var err error
	if !confirmed(r, p) {
		err = &core.ValidationError{Field: "confirm", Err: errConfirmRequired}
	} else {
		err = bs.controller.Delete(r.Context(), kind, r.PathValue("id"))
	}
	s.finish(w, r, bs, p, err, func(b *HTMXResponseBuilder) {
		b.TriggerTransactionDeleted(string(kind)).
			TriggerSuccessNotification(kindLabel(kind) + " deleted.")
	})
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	err := bs.controller.RequestAdvice(r.Context())
	s.finish(w, r, bs, nil, err, nil)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid request body.").Write(w)
		return
	}
	bs.controller.DismissBanner(app.BannerKind(p.Get("kind")))
	s.finish(w, r, bs, p, nil, nil)
}
