package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/present"
	"fintrack/internal/rollup"
	"fintrack/internal/session"
)

type savingsList struct {
	Records []core.MonthlySavings `json:"records"`
	Years   []int                 `json:"years"`
}

func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	recs, err := s.savings.Records(r.Context(), sess.OwnerID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []core.MonthlySavings{}
	}
	writeJSON(w, http.StatusOK, savingsList{Records: recs, Years: rollup.AvailableYears(recs)})
}

// handleSaveMonth snapshots the owner's transactions as the current month,
// or as ?year=&month= when both are given.
func (s *Server) handleSaveMonth(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	year, month, explicit, err := parseOptionalMonth(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !explicit {
		now := s.now()
		year, month = now.Year(), int(now.Month())
	}

	rec, err := s.savings.SaveMonth(r.Context(), sess.OwnerID(), year, month, sess.Transactions())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string              `json:"message"`
		Record  core.MonthlySavings `json:"record"`
	}{Message: rollup.SavedMessage(year, month), Record: rec})
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := s.savings.Records(r.Context(), sess.OwnerID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, present.NewMonthlyChart(recs, year))
}

func (s *Server) handleCompareYears(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	recs, err := s.savings.Records(r.Context(), sess.OwnerID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, present.NewYearlyComparison(recs))
}
