package http

import (
	"net/http"
	"time"

	"bilancio/internal/app"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// NewDegradedServer serves a page explaining that the configuration is unusable.
// Nothing is read or stored. Liveness stays ok so the process is not restarted in a
// loop, and readiness reports the problem.
func NewDegradedServer(addr string, cfgErr error, logger *applog.Logger) (*Server, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s, err := newBaseServer(addr, core.DefaultRegistry, logger, time.Now)
	if err != nil {
		return nil, err
	}
	s.configErr = cfgErr

	mux := http.NewServeMux()
	s.mountStatic(mux)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("/", s.handleDegraded)

	s.Handler = s.chain(mux)
	return s, nil
}

func (s *Server) handleDegraded(w http.ResponseWriter, r *http.Request) {
	st := app.Reduce(app.NewState(core.CurrentYearMonth(s.now())), app.ConfigFailed{Err: s.configErr}, s.registry)
	if wantsJSON(r, nil) {
		out := encodeState(st, s.registry)
		out.Error = app.Message(s.configErr)
		writeJSON(w, http.StatusServiceUnavailable, out)
		return
	}
	data := newPage(st, s.registry, s.today(), nil)
	data.Degraded = true
	s.writePage(w, r, "index.html", data, http.StatusServiceUnavailable)
}
