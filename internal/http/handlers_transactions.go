package http

import (
	"errors"
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/session"
	"fintrack/internal/undo"
)

var errEmptyPatch = errors.New("nothing to update")

type transactionList struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
	Summary      core.Summary       `json:"summary"`
}

// handleListTransactions returns the filtered, sorted view. The summary
// always covers the full set.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q, err := ParseViewQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs := sess.View(q)
	writeJSON(w, http.StatusOK, transactionList{
		Transactions: txs,
		Count:        len(txs),
		Summary:      sess.Summary(),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var in TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := in.Draft(s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := sess.Add(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+created.ID).
		Body(created).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id := strings.TrimSpace(r.PathValue("id"))
	var patch core.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.IsEmpty() {
		writeError(w, r, &core.ValidationError{Field: "body", Err: errEmptyPatch})
		return
	}
	if patch.Name != nil {
		v := sanitizeInput(*patch.Name)
		patch.Name = &v
	}
	if patch.Tag != nil {
		v := sanitizeInput(*patch.Tag)
		patch.Tag = &v
	}
	if patch.Type != nil {
		typ, err := core.ParseTxType(string(*patch.Type))
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Type = &typ
	}

	updated, err := sess.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Delete(r.Context(), strings.TrimSpace(r.PathValue("id"))); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResetTransactions deletes everything. A partial failure reports
// how many records were removed alongside the error.
func (s *Server) handleResetTransactions(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	n, err := sess.ResetAll(r.Context())
	if err != nil {
		status := statusFor(err)
		NewJSONResponse().Status(status).Body(struct {
			Error   string `json:"error"`
			Removed int    `json:"removed"`
		}{Error: http.StatusText(status), Removed: n}).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Removed int `json:"removed"`
	}{Removed: n})
}

type undoResponse struct {
	Kind        undo.Kind         `json:"kind"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Before      *core.Transaction `json:"before,omitempty"`
	After       *core.Transaction `json:"after,omitempty"`
	Remaining   int               `json:"remaining"`
}

func newUndoResponse(e undo.Entry, remaining int) undoResponse {
	out := undoResponse{Kind: e.Kind, Remaining: remaining}
	if e.Kind == undo.KindUpdate {
		out.Before, out.After = &e.Before, &e.After
	} else {
		out.Transaction = &e.Transaction
	}
	return out
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	e, err := sess.Undo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUndoResponse(e, sess.UndoDepth()))
}
