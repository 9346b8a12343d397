// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func Tx(owner, name string, typ core.TxType, cents int64, tag string) core.Transaction {
	return core.Transaction{
		OwnerID:  owner,
		Name:     name,
		Amount:   core.Money{Cents: cents},
		Type:     typ,
		Tag:      tag,
		Date:     core.NewDate(2024, 1, 15),
		ClientID: name + "-client",
	}
}

func Record(owner string, year, month int, savings int64) core.MonthlySavings {
	return core.MonthlySavings{
		OwnerID:          owner,
		Year:             year,
		Month:            month,
		TotalIncome:      core.Money{Cents: savings + 1000},
		TotalExpenses:    core.Money{Cents: 1000},
		Savings:          core.Money{Cents: savings},
		TransactionCount: 3,
		IncomeCount:      1,
		ExpenseCount:     2,
		IncomeByCategory: []core.CategoryAmount{{Name: "Salary", Amount: core.Money{Cents: savings + 1000}}},
		ExpensesByCategory: []core.CategoryAmount{
			{Name: "Rent", Amount: core.Money{Cents: 700}},
			{Name: "Food", Amount: core.Money{Cents: 300}},
		},
	}
}

// Run exercises a backend through the store ports.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("CreateFetch", func(t *testing.T) { testCreateFetch(t, newStore(t)) })
	t.Run("OwnerScope", func(t *testing.T) { testOwnerScope(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("RemoveTwice", func(t *testing.T) { testRemoveTwice(t, newStore(t)) })
	t.Run("RemoveAll", func(t *testing.T) { testRemoveAll(t, newStore(t)) })
	t.Run("Owners", func(t *testing.T) { testOwners(t, newStore(t)) })
	t.Run("MonthlyUpsert", func(t *testing.T) { testMonthlyUpsert(t, newStore(t)) })
	t.Run("MonthlyInsertIfAbsent", func(t *testing.T) { testInsertIfAbsent(t, newStore(t)) })
	t.Run("MonthlyInsertIfAbsentConcurrent", func(t *testing.T) { testInsertIfAbsentConcurrent(t, newStore(t)) })
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
}

func testCreateFetch(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, Tx("u1", "Salary", core.Income, 100000, "Salary"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("id and createdAt must be assigned: %+v", created)
	}
	if created.ClientID != "Salary-client" {
		t.Fatalf("client id not passed through: %q", created.ClientID)
	}

	got, err := s.FetchAll(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 || got[0].ID != created.ID || !got[0].SameContent(created) {
		t.Fatalf("unexpected fetch result %+v", got)
	}

	bad := Tx("u1", "", core.Expense, 10, "Food")
	if _, err := s.Create(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func testOwnerScope(t *testing.T, s store.Store) {
	ctx := context.Background()
	mine, err := s.Create(ctx, Tx("u1", "Lunch", core.Expense, 1200, "Food"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, Tx("u2", "Rent", core.Expense, 90000, "Housing")); err != nil {
		t.Fatal(err)
	}
	got, _ := s.FetchAll(ctx, "u2")
	if len(got) != 1 || got[0].OwnerID != "u2" {
		t.Fatalf("cross-owner read: %+v", got)
	}
	if err := s.Remove(ctx, "u2", mine.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete must be not found, got %v", err)
	}
	if _, err := s.Update(ctx, "u2", mine.ID, Tx("u2", "x", core.Expense, 1, "x")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update must be not found, got %v", err)
	}
}

func testUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, Tx("u1", "Lunch", core.Expense, 1200, "Food"))
	if err != nil {
		t.Fatal(err)
	}
	next := created
	next.Name = "Dinner"
	next.Amount = core.Money{Cents: 3400}
	next.Date = core.NewDate(2024, 2, 1)
	updated, err := s.Update(ctx, "u1", created.ID, next)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Name != "Dinner" || updated.ClientID != created.ClientID {
		t.Fatalf("unexpected update result %+v", updated)
	}
	got, _ := s.FetchAll(ctx, "u1")
	if len(got) != 1 || got[0].Amount.Cents != 3400 || got[0].Date.String() != "2024-02-01" {
		t.Fatalf("update not persisted: %+v", got)
	}
	if _, err := s.Update(ctx, "u1", "999999", next); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testRemoveTwice(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, Tx("u1", "Lunch", core.Expense, 1200, "Food"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, "u1", created.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "u1", created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second remove must be not found, got %v", err)
	}
	got, _ := s.FetchAll(ctx, "u1")
	if len(got) != 0 {
		t.Fatalf("expected empty, got %+v", got)
	}
}

func testRemoveAll(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		if _, err := s.Create(ctx, Tx("u1", name, core.Expense, 100, "Food")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Create(ctx, Tx("u2", "keep", core.Expense, 100, "Food")); err != nil {
		t.Fatal(err)
	}
	n, err := store.RemoveAll(ctx, s, "u1", 3)
	if err != nil || n != 5 {
		t.Fatalf("remove all: n=%d err=%v", n, err)
	}
	left, _ := s.FetchAll(ctx, "u1")
	other, _ := s.FetchAll(ctx, "u2")
	if len(left) != 0 || len(other) != 1 {
		t.Fatalf("unexpected leftovers %d/%d", len(left), len(other))
	}
}

func testOwners(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, owner := range []string{"u2", "u1", "u2"} {
		if _, err := s.Create(ctx, Tx(owner, "x", core.Expense, 100, "Food")); err != nil {
			t.Fatal(err)
		}
	}
	owners, err := s.Owners(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(owners) != 2 {
		t.Fatalf("expected 2 owners, got %v", owners)
	}
}

func testMonthlyUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.GetMonthly(ctx, "u1", 2024, 3); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	first, err := s.UpsertMonthly(ctx, Record("u1", 2024, 3, 500))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertMonthly(ctx, Record("u1", 2024, 3, 800)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if _, err := s.UpsertMonthly(ctx, Record("u1", 2023, 12, 100)); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMonthly(ctx, "u1", 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != first.ID || got.Savings.Cents != 800 {
		t.Fatalf("upsert must replace in place: %+v", got)
	}
	if len(got.ExpensesByCategory) != 2 || got.ExpensesByCategory[0].Name != "Rent" || got.ExpensesByCategory[1].Name != "Food" {
		t.Fatalf("category order lost: %+v", got.ExpensesByCategory)
	}

	list, err := s.ListMonthly(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if other, _ := s.ListMonthly(ctx, "u2"); len(other) != 0 {
		t.Fatal("records leaked across owners")
	}
}

func testInsertIfAbsent(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec, created, err := s.InsertMonthlyIfAbsent(ctx, Record("u1", 2024, 1, 500))
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	again, created, err := s.InsertMonthlyIfAbsent(ctx, Record("u1", 2024, 1, 900))
	if err != nil || created {
		t.Fatalf("second insert: created=%v err=%v", created, err)
	}
	if again.ID != rec.ID || again.Savings.Cents != 500 {
		t.Fatalf("existing record must win: %+v", again)
	}
}

func testInsertIfAbsentConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := s.InsertMonthlyIfAbsent(ctx, Record("u1", 2024, 6, 100))
			if err != nil {
				t.Errorf("insert: %v", err)
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if createdCount != 1 {
		t.Fatalf("expected exactly one creation, got %d", createdCount)
	}
	list, _ := s.ListMonthly(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("expected one record, got %d", len(list))
	}
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.AccountByEmail(ctx, "ada@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown email: expected not found, got %v", err)
	}

	acc := core.Account{
		ID:           "owner-1",
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: []byte("$2a$04$hash"),
		CreatedAt:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	dup := acc
	dup.ID = "owner-2"
	if err := s.CreateAccount(ctx, dup); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("duplicate email: expected already exists, got %v", err)
	}

	got, err := s.AccountByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.ID != acc.ID || got.Name != acc.Name || string(got.PasswordHash) != string(acc.PasswordHash) {
		t.Fatalf("unexpected account %+v", got)
	}
	if !got.CreatedAt.Equal(acc.CreatedAt) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, acc.CreatedAt)
	}
}
