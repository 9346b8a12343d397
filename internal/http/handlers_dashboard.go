package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/present"
	"fintrack/internal/session"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sum := sess.Summary()
	writeJSON(w, http.StatusOK, struct {
		Summary core.Summary  `json:"summary"`
		Rows    []present.Row `json:"rows"`
	}{Summary: sum, Rows: present.SummaryTable(sum)})
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, present.NewDashboard(sess.Transactions()))
}

// handleTags lists suggested tags for a type, or both lists when the type
// is omitted.
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" {
		writeJSON(w, http.StatusOK, map[core.TxType][]string{
			core.Income:  core.SuggestedTags(core.Income),
			core.Expense: core.SuggestedTags(core.Expense),
		})
		return
	}
	typ, err := core.ParseTxType(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Type core.TxType `json:"type"`
		Tags []string    `json:"tags"`
	}{Type: typ, Tags: core.SuggestedTags(typ)})
}
