package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/identity"
	"fintrack/internal/session"
)

func TestParseViewQuery(t *testing.T) {
	q, err := ParseViewQuery(url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	want := aggregate.Query{TypeFilter: aggregate.FilterAll, SortField: aggregate.SortDate, Direction: aggregate.Desc}
	if q != want {
		t.Fatalf("defaults = %+v", q)
	}

	q, err = ParseViewQuery(url.Values{"type": {"Income"}, "q": {"  rent "}, "sort": {"AMOUNT"}, "dir": {"asc"}})
	if err != nil {
		t.Fatal(err)
	}
	if q.TypeFilter != "income" || q.Search != "rent" || q.SortField != aggregate.SortAmount || q.Direction != aggregate.Asc {
		t.Fatalf("parsed = %+v", q)
	}

	if _, err := ParseViewQuery(url.Values{"dir": {"sideways"}}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("bad dir err = %v", err)
	}
}

func TestParseOptionalMonth(t *testing.T) {
	tests := []struct {
		query   url.Values
		y, m    int
		ok      bool
		wantErr bool
	}{
		{url.Values{}, 0, 0, false, false},
		{url.Values{"year": {"2024"}, "month": {"2"}}, 2024, 2, true, false},
		{url.Values{"year": {"2024"}}, 0, 0, false, true},
		{url.Values{"month": {"2"}}, 0, 0, false, true},
		{url.Values{"year": {"2024"}, "month": {"13"}}, 0, 0, false, true},
		{url.Values{"year": {"24"}, "month": {"1"}}, 0, 0, false, true},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			y, m, ok, err := parseOptionalMonth(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if y != tt.y || m != tt.m || ok != tt.ok {
				t.Fatalf("got %d/%d ok=%v", y, m, ok)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"Basic abc":     "",
		"Bearer":        "",
		"BearerXabcdef": "",
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := bearerToken(r); got != want {
			t.Errorf("%q: got %q, want %q", header, got, want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Rent\x00\x07 March\t "); got != "Rent March" {
		t.Fatalf("got %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.ValidationError{Field: "name", Err: core.ErrEmptyName}, http.StatusUnprocessableEntity},
		{&core.ValidationError{Field: "email", Err: identity.ErrEmailTaken}, http.StatusConflict},
		{fmt.Errorf("delete: %w", core.ErrNotFound), http.StatusNotFound},
		{core.ErrEmptyStack, http.StatusConflict},
		{core.ErrUnauthenticated, http.StatusUnauthorized},
		{session.ErrClosed, http.StatusUnauthorized},
		{fmt.Errorf("add: %w", core.Persistence("create", errors.New("down"))), http.StatusBadGateway},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("%v: got %d, want %d", tt.err, got, tt.want)
		}
	}
}
