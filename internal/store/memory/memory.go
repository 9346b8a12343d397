// Package memory is an in-process store used by tests and DATA_BACKEND=memory.
package memory

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	nextID  int
	txs     map[string]core.Transaction
	savings  map[savingsKey]core.MonthlySavings
	accounts map[string]core.Account
	now      func() time.Time

	failNext error
}

type savingsKey struct {
	owner string
	year  int
	month int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		txs:     make(map[string]core.Transaction),
		savings:  make(map[savingsKey]core.MonthlySavings),
		accounts: make(map[string]core.Account),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for CreatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FailNext makes the next mutating call fail with err wrapped as a
// persistence error.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *Store) takeFailure(op string) error {
	if s.failNext == nil {
		return nil
	}
	err := s.failNext
	s.failNext = nil
	return core.Persistence(op, err)
}

func (s *Store) FetchAll(_ context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Transaction{}
	for _, tx := range s.txs {
		if tx.OwnerID == ownerID {
			out = append(out, tx)
		}
	}
	// creation order
	slices.SortFunc(out, func(a, b core.Transaction) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

func (s *Store) Create(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("create transaction"); err != nil {
		return core.Transaction{}, err
	}
	s.nextID++
	tx.ID = "mem:" + strconv.Itoa(s.nextID)
	tx.CreatedAt = s.now().UTC()
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) Update(_ context.Context, ownerID, id string, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("update transaction"); err != nil {
		return core.Transaction{}, err
	}
	cur, ok := s.txs[id]
	if !ok || cur.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	tx.ID = cur.ID
	tx.OwnerID = cur.OwnerID
	tx.CreatedAt = cur.CreatedAt
	tx.ClientID = cur.ClientID
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.txs[id] = tx
	return tx, nil
}

func (s *Store) Remove(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("delete transaction"); err != nil {
		return err
	}
	cur, ok := s.txs[id]
	if !ok || cur.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) Owners(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	out := []string{}
	for _, tx := range s.txs {
		if !seen[tx.OwnerID] {
			seen[tx.OwnerID] = true
			out = append(out, tx.OwnerID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) ListMonthly(_ context.Context, ownerID string) ([]core.MonthlySavings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.MonthlySavings{}
	for k, rec := range s.savings {
		if k.owner == ownerID {
			out = append(out, cloneRecord(rec))
		}
	}
	slices.SortFunc(out, func(a, b core.MonthlySavings) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return b.Month - a.Month
	})
	return out, nil
}

func (s *Store) GetMonthly(_ context.Context, ownerID string, year, month int) (core.MonthlySavings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.savings[savingsKey{ownerID, year, month}]
	if !ok {
		return core.MonthlySavings{}, core.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *Store) UpsertMonthly(_ context.Context, rec core.MonthlySavings) (core.MonthlySavings, error) {
	if err := rec.Validate(); err != nil {
		return core.MonthlySavings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("upsert monthly savings"); err != nil {
		return core.MonthlySavings{}, err
	}
	k := savingsKey{rec.OwnerID, rec.Year, rec.Month}
	if cur, ok := s.savings[k]; ok {
		rec.ID = cur.ID
	} else {
		s.nextID++
		rec.ID = "mem:" + strconv.Itoa(s.nextID)
	}
	rec.CreatedAt = s.now().UTC()
	s.savings[k] = cloneRecord(rec)
	return rec, nil
}

func (s *Store) InsertMonthlyIfAbsent(_ context.Context, rec core.MonthlySavings) (core.MonthlySavings, bool, error) {
	if err := rec.Validate(); err != nil {
		return core.MonthlySavings{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("insert monthly savings"); err != nil {
		return core.MonthlySavings{}, false, err
	}
	k := savingsKey{rec.OwnerID, rec.Year, rec.Month}
	if cur, ok := s.savings[k]; ok {
		return cloneRecord(cur), false, nil
	}
	s.nextID++
	rec.ID = "mem:" + strconv.Itoa(s.nextID)
	rec.CreatedAt = s.now().UTC()
	s.savings[k] = cloneRecord(rec)
	return rec, true, nil
}

func (s *Store) CreateAccount(_ context.Context, acc core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("create account"); err != nil {
		return err
	}
	if _, ok := s.accounts[acc.Email]; ok {
		return core.ErrAlreadyExists
	}
	acc.PasswordHash = slices.Clone(acc.PasswordHash)
	s.accounts[acc.Email] = acc
	return nil
}

func (s *Store) AccountByEmail(_ context.Context, email string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[email]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	acc.PasswordHash = slices.Clone(acc.PasswordHash)
	return acc, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func cloneRecord(r core.MonthlySavings) core.MonthlySavings {
	r.IncomeByCategory = slices.Clone(r.IncomeByCategory)
	r.ExpensesByCategory = slices.Clone(r.ExpensesByCategory)
	if r.IncomeByCategory == nil {
		r.IncomeByCategory = []core.CategoryAmount{}
	}
	if r.ExpensesByCategory == nil {
		r.ExpensesByCategory = []core.CategoryAmount{}
	}
	return r
}

func compareIDs(a, b string) int {
	ai, errA := strconv.Atoi(strings.TrimPrefix(a, "mem:"))
	bi, errB := strconv.Atoi(strings.TrimPrefix(b, "mem:"))
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return ai - bi
}
