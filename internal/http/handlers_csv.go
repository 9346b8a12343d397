package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/csvio"
	"fintrack/internal/log"
	"fintrack/internal/session"
)

const importFormField = "file"

// handleExportCSV streams the current view as CSV; it honours the same
// query parameters as the list endpoint.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q, err := ParseViewQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := csvio.Export(&buf, sess.View(q)); err != nil {
		writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("transactions-%s.csv", s.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type importResponse struct {
	Imported int      `json:"imported"`
	Rejected []string `json:"rejected"`
	Failed   []string `json:"failed"`
}

// handleImportCSV accepts a raw text/csv body or a multipart upload in the
// "file" field. Unparseable rows are listed under rejected, rows the store
// refused under failed.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

	body, closeBody, err := importReader(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeBody()

	drafts, rowErrs, err := csvio.Import(body, s.now())
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = errBodyTooLarge
		}
		writeError(w, r, &core.ValidationError{Field: "file", Err: err})
		return
	}

	added, failed := sess.Import(r.Context(), drafts)
	resp := importResponse{
		Imported: len(added),
		Rejected: errorStrings(rowErrs),
		Failed:   errorStrings(failed),
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).InfoContext(r.Context(), "CSV import",
		log.FieldOperation, log.OpImport,
		log.FieldCount, resp.Imported,
		"rejected", len(resp.Rejected),
		"failed", len(resp.Failed))

	status := http.StatusOK
	if resp.Imported == 0 && (len(resp.Rejected) > 0 || len(resp.Failed) > 0) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func importReader(r *http.Request) (io.Reader, func(), error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		return r.Body, func() {}, nil
	}
	f, _, err := r.FormFile(importFormField)
	if err != nil {
		return nil, nil, &core.ValidationError{Field: importFormField, Err: err}
	}
	return f, func() { _ = f.Close() }, nil
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}
