package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
	"fintrack/internal/store/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTemp(t) })
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, storetest.Tx("u1", "Salary", core.Income, 5000, "Salary")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("second open must skip applied migrations: %v", err)
	}
	defer s2.Close()
	got, err := s2.FetchAll(ctx, "u1")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected persisted row, got %v (err=%v)", got, err)
	}
}

func TestFetchNormalizesLegacyRows(t *testing.T) {
	s := openTemp(t)
	fixed := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	s.WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (owner_id, name, amount_cents, type, tag, date, client_id, created_at)
		VALUES ('u1', 'legacy null', NULL, 'expense', 'Food', NULL, '', '2024-01-01T00:00:00Z'),
		       ('u1', 'legacy junk', 250, 'expense', 'Food', 'not-a-date', '', '2024-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.FetchAll(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	for _, tx := range got {
		if tx.Date.String() != "2024-05-31" {
			t.Fatalf("%s: date not defaulted to now: %s", tx.Name, tx.Date)
		}
	}
	if got[0].Amount.Cents != 0 && got[1].Amount.Cents != 0 {
		t.Fatal("NULL amount must read as zero")
	}
}

func TestCreatedAtUsesClock(t *testing.T) {
	s := openTemp(t)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.WithClock(func() time.Time { return fixed })
	tx, err := s.Create(context.Background(), storetest.Tx("u1", "x", core.Expense, 10, "Food"))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.FetchAll(context.Background(), "u1")
	if !tx.CreatedAt.Equal(fixed) || !got[0].CreatedAt.Equal(fixed) {
		t.Fatalf("createdAt %v / %v", tx.CreatedAt, got[0].CreatedAt)
	}
}

func TestNonNumericIDIsNotFound(t *testing.T) {
	s := openTemp(t)
	if err := s.Remove(context.Background(), "u1", "mem:1"); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
