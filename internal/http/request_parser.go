// Package http serves the JSON API.
//
// This file holds the helpers that turn query strings and bodies into
// domain values. Every failure is a *core.ValidationError so handlers can
// map it to 422 without inspecting it.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20
)

var errBodyTooLarge = errors.New("request body too large")

// TransactionInput is the body of POST /api/transactions.
type TransactionInput struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
	Type   string     `json:"type"`
	Tag    string     `json:"tag"`
	Date   *core.Date `json:"date,omitempty"`
}

// Draft converts the input to a transaction without owner or identity. A
// missing date means the day of now.
func (in TransactionInput) Draft(now time.Time) (core.Transaction, error) {
	typ, err := core.ParseTxType(in.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Name:   sanitizeInput(in.Name),
		Amount: in.Amount,
		Type:   typ,
		Tag:    sanitizeInput(in.Tag),
		Date:   core.DateOf(now),
	}
	if in.Date != nil && !in.Date.IsZero() {
		tx.Date = *in.Date
	}
	return tx, nil
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// decodeJSON reads one JSON object from the body into v, rejecting unknown
// fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &core.ValidationError{Field: "body", Err: errBodyTooLarge}
		case errors.Is(err, io.EOF):
			return &core.ValidationError{Field: "body", Err: errors.New("empty body")}
		default:
			return &core.ValidationError{Field: "body", Err: err}
		}
	}
	if dec.More() {
		return &core.ValidationError{Field: "body", Err: errors.New("unexpected data after JSON object")}
	}
	return nil
}

// ParseViewQuery reads type, q, sort and dir into an aggregate.Query.
func ParseViewQuery(query url.Values) (aggregate.Query, error) {
	typ, err := aggregate.ParseTypeFilter(query.Get("type"))
	if err != nil {
		return aggregate.Query{}, err
	}
	field, err := aggregate.ParseSortField(query.Get("sort"))
	if err != nil {
		return aggregate.Query{}, err
	}
	dir, err := aggregate.ParseDirection(query.Get("dir"))
	if err != nil {
		return aggregate.Query{}, err
	}
	return aggregate.Query{
		TypeFilter: typ,
		Search:     strings.TrimSpace(query.Get("q")),
		SortField:  field,
		Direction:  dir,
	}, nil
}

// parseYear validates a path year.
func parseYear(s string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < 1900 || y > 9999 {
		return 0, &core.ValidationError{Field: "year", Err: fmt.Errorf("invalid year %q", s)}
	}
	return y, nil
}

// parseOptionalMonth reads year and month from the query. Both must be set
// together; ok is false when neither is.
func parseOptionalMonth(query url.Values) (year, month int, ok bool, err error) {
	ys, ms := strings.TrimSpace(query.Get("year")), strings.TrimSpace(query.Get("month"))
	if ys == "" && ms == "" {
		return 0, 0, false, nil
	}
	if year, err = parseYear(ys); err != nil {
		return 0, 0, false, err
	}
	month, convErr := strconv.Atoi(ms)
	if convErr != nil || month < 1 || month > 12 {
		return 0, 0, false, &core.ValidationError{Field: "month", Err: fmt.Errorf("invalid month %q", ms)}
	}
	return year, month, true, nil
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// sanitizeInput trims and drops control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
