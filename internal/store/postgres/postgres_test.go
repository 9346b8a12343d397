package postgres

import (
	"context"
	"os"
	"testing"

	"fintrack/internal/store"
	"fintrack/internal/store/storetest"
)

// Set FINTRACK_TEST_POSTGRES_URL to run the contract against a scratch database.
func TestContract(t *testing.T) {
	url := os.Getenv("FINTRACK_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("FINTRACK_TEST_POSTGRES_URL not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := Open(ctx, url, nil)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if _, err := s.pool.Exec(ctx, `TRUNCATE transactions, monthly_savings, accounts RESTART IDENTITY`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestDecodeCategories(t *testing.T) {
	got := decodeCategories([]byte(`[{"name":"Rent","amount":"700.00"},{"name":"Food","amount":3}]`))
	if len(got) != 2 || got[0].Name != "Rent" || got[0].Amount.Cents != 70000 || got[1].Amount.Cents != 300 {
		t.Fatalf("unexpected categories %+v", got)
	}
	if got := decodeCategories(nil); got == nil || len(got) != 0 {
		t.Fatal("empty input must yield empty slice")
	}
	if got := decodeCategories([]byte(`{broken`)); got == nil || len(got) != 0 {
		t.Fatal("malformed input must yield empty slice")
	}
}

func TestSavingsArgsEncodesEmptyCategories(t *testing.T) {
	rec := storetest.Record("u1", 2024, 1, 100)
	rec.IncomeByCategory = nil
	args, err := savingsArgs(rec)
	if err != nil {
		t.Fatal(err)
	}
	if args[9] != "[]" {
		t.Fatalf("nil categories must encode as [], got %v", args[9])
	}
}
