package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bilancio/internal/app"
	applog "bilancio/internal/log"
)

const heartbeatInterval = 25 * time.Second

// handleEvents streams a "state" event whenever the session's state changes, so the
// page follows changes made in other tabs or by other processes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Listeners run synchronously inside Dispatch, so they only mark the stream dirty.
	updates := make(chan struct{}, 1)
	cancel := bs.controller.OnState(func(app.State) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer cancel()

	send := func() error {
		data, err := json.Marshal(encodeState(bs.controller.State(), s.registry))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	if _, err := fmt.Fprint(w, "retry: 3000\n\n"); err != nil {
		return
	}
	if err := send(); err != nil {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Event stream closed", applog.FieldError, err)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case <-updates:
			if err := send(); err != nil {
				applog.FromContext(r.Context()).DebugContext(r.Context(), "Event stream closed", applog.FieldError, err)
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
