package csvio

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

var now = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

func TestExportImportRoundTrip(t *testing.T) {
	txs := []core.Transaction{
		{Name: "Salary, March", Amount: core.Money{Cents: 300000}, Type: core.Income, Tag: "Salary", Date: core.NewDate(2024, 3, 1)},
		{Name: "Coffee", Amount: core.Money{Cents: 350}, Type: core.Expense, Tag: "Food", Date: core.NewDate(2024, 3, 2)},
	}
	var buf bytes.Buffer
	if err := Export(&buf, txs); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "Name,Amount,Type,Tag,Date" || lines[2] != "Coffee,3.50,expense,Food,2024-03-02" {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	got, errs, err := Import(&buf, now)
	if err != nil || len(errs) != 0 {
		t.Fatalf("import: %v %v", err, errs)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(got))
	}
	for i := range txs {
		if !got[i].SameContent(txs[i]) {
			t.Fatalf("row %d: got %+v want %+v", i, got[i], txs[i])
		}
	}
}

func TestImportLowercaseLegacyOrder(t *testing.T) {
	in := "name,type,tag,amount,date\nRent,expense,Rent,\"1200,50\",2024-02-28\nGift,INCOME,Gifts,25,\n"
	got, errs, err := Import(strings.NewReader(in), now)
	if err != nil || len(errs) != 0 {
		t.Fatalf("import: %v %v", err, errs)
	}
	if got[0].Amount.Cents != 120050 || got[0].Date != core.NewDate(2024, 2, 28) {
		t.Fatalf("unexpected first row %+v", got[0])
	}
	if got[1].Type != core.Income || got[1].Date != core.NewDate(2024, 3, 20) {
		t.Fatalf("missing date must default to today: %+v", got[1])
	}
}

func TestImportRowErrors(t *testing.T) {
	in := "Name,Amount,Type,Tag,Date\nA,abc,expense,Food,2024-01-01\nB,5,transfer,Food,2024-01-01\nC,5,expense,Food,01/02/2024\nD,5,expense,Food,2024-01-02\n"
	got, errs, err := Import(strings.NewReader(in), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "D" {
		t.Fatalf("unexpected drafts %+v", got)
	}
	if len(errs) != 3 {
		t.Fatalf("expected 3 row errors, got %v", errs)
	}
	var rowErr *core.RowError
	if !errors.As(errs[0], &rowErr) || rowErr.Row != 1 || !errors.Is(errs[0], core.ErrInvalidAmount) {
		t.Fatalf("unexpected first error %v", errs[0])
	}
	for _, e := range errs {
		if !errors.Is(e, core.ErrValidation) {
			t.Fatalf("row errors must be validation errors: %v", e)
		}
	}
}

func TestImportRejectsBadHeader(t *testing.T) {
	if _, _, err := Import(strings.NewReader(""), now); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected empty file error, got %v", err)
	}
	if _, _, err := Import(strings.NewReader("name,amount,type\n"), now); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected missing column, got %v", err)
	}
}
