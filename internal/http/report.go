package http

import (
	"fmt"
	"net/http"

	applog "bilancio/internal/log"
	"bilancio/internal/report"
)

// handleReport serves the selected month, or ?month=YYYY-MM, as a PDF statement.
// The session's selected month is left unchanged.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	bs := s.sessions.resolve(w, r)
	st := bs.controller.State()
	if !st.SignedIn() {
		http.Error(w, "sign in to download reports", http.StatusUnauthorized)
		return
	}

	month := ParseMonth(r.URL.Query(), st.Month)
	view := st.View
	if month != st.Month {
		view = report.Compute(st.Expenses, st.Incomes, month, s.registry)
	}

	pdf, err := report.BuildMonthlyPDF(view, st.Principal, s.registry)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "PDF report failed",
			applog.FieldOperation, applog.OpRender,
			applog.FieldMonth, FormatMonth(month),
			applog.FieldError, err)
		http.Error(w, "could not build the report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bilancio-%s.pdf"`, FormatMonth(month)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(pdf)
}
