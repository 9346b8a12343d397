// Package store defines the persistence ports for transactions and monthly
// savings snapshots. Every read and write is scoped by owner.
package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

// TransactionStore persists transactions. Implementations return
// core.ErrNotFound for ids absent from the owner's scope and wrap every other
// failure in *core.PersistenceError.
type TransactionStore interface {
	// FetchAll returns the owner's transactions in no particular order.
	FetchAll(ctx context.Context, ownerID string) ([]core.Transaction, error)
	// Create assigns the id and CreatedAt and returns the stored record.
	Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	// Update replaces all mutable fields of the owner's record.
	Update(ctx context.Context, ownerID, id string, tx core.Transaction) (core.Transaction, error)
	Remove(ctx context.Context, ownerID, id string) error
}

// SavingsStore persists monthly snapshots; (owner, year, month) is unique.
type SavingsStore interface {
	ListMonthly(ctx context.Context, ownerID string) ([]core.MonthlySavings, error)
	GetMonthly(ctx context.Context, ownerID string, year, month int) (core.MonthlySavings, error)
	// UpsertMonthly writes rec, replacing any record with the same key.
	UpsertMonthly(ctx context.Context, rec core.MonthlySavings) (core.MonthlySavings, error)
	// InsertMonthlyIfAbsent writes rec only when no record has its key. It
	// returns the record now stored and whether this call created it.
	InsertMonthlyIfAbsent(ctx context.Context, rec core.MonthlySavings) (core.MonthlySavings, bool, error)
}

// OwnerLister enumerates owners that have at least one transaction.
type OwnerLister interface {
	Owners(ctx context.Context) ([]string, error)
}

// AccountStore persists sign-in accounts keyed by normalized email.
type AccountStore interface {
	// CreateAccount returns core.ErrAlreadyExists when the email is taken.
	CreateAccount(ctx context.Context, acc core.Account) error
	// AccountByEmail returns core.ErrNotFound for unknown emails.
	AccountByEmail(ctx context.Context, email string) (core.Account, error)
}

// Store is what a backend provides.
type Store interface {
	TransactionStore
	SavingsStore
	OwnerLister
	AccountStore
	Ping(ctx context.Context) error
	Close() error
}

// RemoveAll deletes every transaction of the owner, each independently and
// at most concurrency at a time. It does not stop at the first failure and
// never rolls back: the count of removed records is returned together with
// the joined individual errors.
func RemoveAll(ctx context.Context, ts TransactionStore, ownerID string, concurrency int) (int, error) {
	txs, err := ts.FetchAll(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("remove all: %w", err)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	errs := make([]error, len(txs))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, tx := range txs {
		g.Go(func() error {
			if err := ts.Remove(ctx, ownerID, tx.ID); err != nil {
				errs[i] = fmt.Errorf("remove %s: %w", tx.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	removed := 0
	for _, e := range errs {
		if e == nil {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}
