package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func validTx() Transaction {
	return Transaction{
		OwnerID: "u1",
		Name:    "Groceries",
		Amount:  Money{Cents: 1250},
		Type:    Expense,
		Tag:     "Food",
		Date:    NewDate(2024, 1, 10),
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTx().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"empty name", func(tx *Transaction) { tx.Name = "  " }, ErrEmptyName},
		{"long name", func(tx *Transaction) { tx.Name = strings.Repeat("x", 201) }, ErrNameTooLong},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"empty tag", func(tx *Transaction) { tx.Tag = "" }, ErrEmptyTag},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"no owner", func(tx *Transaction) { tx.OwnerID = "" }, ErrEmptyOwner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTx()
			tc.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation in chain, got %v", err)
			}
		})
	}
}

func TestValidateForInputRejectsFutureDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	tx := validTx()
	tx.OwnerID = ""
	tx.Date = NewDate(2024, 3, 15)
	if err := tx.ValidateForInput(now); err != nil {
		t.Fatalf("today must be accepted: %v", err)
	}
	tx.Date = NewDate(2024, 3, 16)
	if err := tx.ValidateForInput(now); !errors.Is(err, ErrFutureDate) {
		t.Fatalf("expected ErrFutureDate, got %v", err)
	}
}

func TestParseTxType(t *testing.T) {
	if got, err := ParseTxType(" Income "); err != nil || got != Income {
		t.Fatalf("got %q err %v", got, err)
	}
	if _, err := ParseTxType("refund"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-02-29"`), &d); err != nil {
		t.Fatal(err)
	}
	if d.Year() != 2024 || d.Month() != 2 || d.Day() != 29 {
		t.Fatalf("unexpected date %v", d)
	}
	if err := json.Unmarshal([]byte(`"2024-02-29T22:30:00Z"`), &d); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("timestamp not truncated: %s", d)
	}
	b, _ := json.Marshal(d)
	if string(b) != `"2024-02-29"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	if err := json.Unmarshal([]byte(`"29/02/2024"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestPatchApply(t *testing.T) {
	tx := validTx()
	tx.ID = "42"
	tx.ClientID = "c-1"
	name := " Rent "
	amt := Money{Cents: 90000}
	typ := Expense
	p := Patch{Name: &name, Amount: &amt, Type: &typ}
	if p.IsEmpty() {
		t.Fatal("patch should not be empty")
	}
	got := p.Apply(tx)
	if got.Name != "Rent" || got.Amount != amt || got.Tag != "Food" {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.ID != "42" || got.ClientID != "c-1" || got.OwnerID != "u1" {
		t.Fatalf("identity changed: %+v", got)
	}
	if !(Patch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
}

func TestSameContentIgnoresIdentity(t *testing.T) {
	a := validTx()
	b := validTx()
	a.ID, b.ID = "1", "2"
	b.CreatedAt = time.Now()
	if !a.SameContent(b) {
		t.Fatal("expected same content")
	}
	b.Tag = "Shopping"
	if a.SameContent(b) {
		t.Fatal("expected different content")
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("insert transaction", cause)
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, cause) {
		t.Fatalf("unexpected chain: %v", err)
	}
	if got := Persistence("delete", ErrNotFound); got != ErrNotFound {
		t.Fatalf("not-found must pass through, got %v", got)
	}
	if Persistence("noop", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestMonthNames(t *testing.T) {
	if MonthName(3) != "March" || MonthAbbrev(12) != "Dec" {
		t.Fatal("unexpected month name")
	}
	if MonthName(0) != "" || MonthName(13) != "" || MonthAbbrev(13) != "" {
		t.Fatal("out-of-range month must be empty")
	}
}

func TestSuggestedTags(t *testing.T) {
	inc := SuggestedTags(Income)
	if len(inc) != 6 || inc[5] != "PocketMoney" {
		t.Fatalf("unexpected income tags %v", inc)
	}
	inc[0] = "mutated"
	if SuggestedTags(Income)[0] != "Salary" {
		t.Fatal("suggestions must be copied")
	}
	if len(SuggestedTags(Expense)) != 9 {
		t.Fatal("unexpected expense tags")
	}
	if got := SuggestedTags("x"); got == nil || len(got) != 0 {
		t.Fatal("unknown type yields empty non-nil list")
	}
}
