// Package session holds the per-login state of one owner: the local mirror
// of the owner's transactions and the undo history of the mutations made
// through it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/store"
	"fintrack/internal/undo"
)

var ErrClosed = errors.New("session closed")

const defaultRemoveConcurrency = 8

type Options struct {
	// UndoLimit caps the undo history; zero keeps every entry.
	UndoLimit int
	// RemoveConcurrency bounds parallel deletes in ResetAll.
	RemoveConcurrency int
	Publisher         events.Publisher
	Logger            *log.Logger
	Now               func() time.Time
}

// Session serializes the owner's mutations. Every write is followed by a
// full re-fetch; a fetch that started before a reset or Close is dropped.
type Session struct {
	ownerID     string
	store       store.TransactionStore
	undo        *undo.Stack
	publisher   events.Publisher
	logger      *log.Logger
	slog        *log.StructuredLogger
	now         func() time.Time
	concurrency int

	writeMu sync.Mutex

	mu     sync.RWMutex
	txs    []core.Transaction
	gen    uint64
	loaded bool
	closed bool
}

func New(ownerID string, st store.TransactionStore, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RemoveConcurrency < 1 {
		opts.RemoveConcurrency = defaultRemoveConcurrency
	}
	return &Session{
		ownerID:     ownerID,
		store:       st,
		undo:        undo.NewStack(opts.UndoLimit, opts.Logger),
		publisher:   opts.Publisher,
		logger:      opts.Logger.WithComponent(log.ComponentSession).With(log.FieldOwnerID, ownerID),
		slog:        log.NewStructuredLogger(opts.Logger),
		now:         opts.Now,
		concurrency: opts.RemoveConcurrency,
		txs:         []core.Transaction{},
	}
}

func (s *Session) OwnerID() string { return s.ownerID }

// Refresh replaces the mirror with the store's current rows.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	gen, closed := s.gen, s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	txs, err := s.store.FetchAll(ctx, s.ownerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Fetch failed", log.FieldError, err.Error())
		return fmt.Errorf("refresh: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen {
		s.logger.DebugContext(ctx, "Discarding stale fetch")
		return nil
	}
	s.txs = txs
	s.loaded = true
	return nil
}

func (s *Session) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Transactions returns a copy of the mirror.
func (s *Session) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

func (s *Session) Summary() core.Summary {
	return aggregate.Summarize(s.Transactions())
}

// View returns the filtered and sorted mirror.
func (s *Session) View(q aggregate.Query) []core.Transaction {
	return aggregate.FilterAndSort(s.Transactions(), q)
}

// UndoDepth reports how many mutations can still be undone.
func (s *Session) UndoDepth() int { return s.undo.Len() }

func (s *Session) find(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.txs {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Add validates draft, stores it under a fresh client id and records the
// add for undo.
func (s *Session) Add(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return core.Transaction{}, ErrClosed
	}

	created, err := s.add(ctx, draft)
	if err != nil {
		return core.Transaction{}, err
	}
	s.afterWrite(ctx)
	return created, nil
}

func (s *Session) add(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	draft.ID = ""
	draft.OwnerID = s.ownerID
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Tag = strings.TrimSpace(draft.Tag)
	if err := draft.ValidateForInput(s.now()); err != nil {
		return core.Transaction{}, err
	}
	draft.ClientID = uuid.NewString()

	created, err := s.store.Create(ctx, draft)
	if err != nil {
		s.logFailure(ctx, "Add failed", err, log.OpCreate, draft)
		return core.Transaction{}, fmt.Errorf("add: %w", err)
	}
	s.undo.Record(undo.Added(created))
	s.slog.LogMutation(ctx, log.OpCreate, s.ownerID, created.ID, created.ClientID, created.Amount.Cents, string(created.Type), created.Tag)
	s.publish(ctx, events.NewTransactionEvent(events.TransactionCreated, s.ownerID, created.ID))
	return created, nil
}

// Delete removes the transaction with id and records it for undo.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return ErrClosed
	}

	before, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Remove(ctx, s.ownerID, id); err != nil {
		s.logFailure(ctx, "Delete failed", err, log.OpDelete, before)
		return fmt.Errorf("delete: %w", err)
	}
	s.undo.Record(undo.Deleted(before))
	s.slog.LogMutation(ctx, log.OpDelete, s.ownerID, before.ID, before.ClientID, before.Amount.Cents, string(before.Type), before.Tag)
	s.publish(ctx, events.NewTransactionEvent(events.TransactionDeleted, s.ownerID, id))
	s.afterWrite(ctx)
	return nil
}

// Update applies patch to the transaction with id and records the previous
// content for undo.
func (s *Session) Update(ctx context.Context, id string, patch core.Patch) (core.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return core.Transaction{}, ErrClosed
	}

	before, err := s.lookup(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	after := patch.Apply(before)
	if err := after.ValidateForInput(s.now()); err != nil {
		return core.Transaction{}, err
	}
	updated, err := s.store.Update(ctx, s.ownerID, id, after)
	if err != nil {
		s.logFailure(ctx, "Update failed", err, log.OpUpdate, after)
		return core.Transaction{}, fmt.Errorf("update: %w", err)
	}
	s.undo.Record(undo.Updated(before, updated))
	s.slog.LogMutation(ctx, log.OpUpdate, s.ownerID, updated.ID, updated.ClientID, updated.Amount.Cents, string(updated.Type), updated.Tag)
	s.publish(ctx, events.NewTransactionEvent(events.TransactionUpdated, s.ownerID, id))
	s.afterWrite(ctx)
	return updated, nil
}

// lookup finds id in the mirror, refreshing once when it is missing.
func (s *Session) lookup(ctx context.Context, id string) (core.Transaction, error) {
	if tx, ok := s.find(id); ok {
		return tx, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return core.Transaction{}, err
	}
	if tx, ok := s.find(id); ok {
		return tx, nil
	}
	return core.Transaction{}, core.ErrNotFound
}

// Undo reverses the most recent mutation. It returns core.ErrEmptyStack
// when there is nothing left to undo.
func (s *Session) Undo(ctx context.Context) (undo.Entry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return undo.Entry{}, ErrClosed
	}

	e, err := s.undo.Undo(ctx, reverter{s})
	if err != nil {
		if errors.Is(err, core.ErrEmptyStack) {
			return undo.Entry{}, err
		}
		return e, fmt.Errorf("undo: %w", err)
	}
	s.afterWrite(ctx)
	return e, nil
}

// ResetAll deletes every transaction of the owner and empties the undo
// history. Deletes are independent; the returned error joins the ones that
// failed and n counts the ones that succeeded.
func (s *Session) ResetAll(ctx context.Context) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return 0, ErrClosed
	}

	s.undo.Clear()
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()

	n, err := store.RemoveAll(ctx, s.store, s.ownerID, s.concurrency)
	if err != nil {
		s.logger.ErrorContext(ctx, "Reset incomplete",
			log.FieldOperation, log.OpReset,
			log.FieldCount, n,
			log.FieldError, err.Error())
	} else {
		s.logger.InfoContext(ctx, "All transactions removed", log.FieldOperation, log.OpReset, log.FieldCount, n)
	}
	if n > 0 {
		s.publish(ctx, events.NewTransactionEvent(events.TransactionsReset, s.ownerID, ""))
	}
	s.afterWrite(ctx)
	return n, err
}

// Import adds every draft, continuing past rows that fail. The mirror is
// refreshed once at the end.
func (s *Session) Import(ctx context.Context, drafts []core.Transaction) ([]core.Transaction, []error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return nil, []error{ErrClosed}
	}

	added := make([]core.Transaction, 0, len(drafts))
	var errs []error
	for i, d := range drafts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		tx, err := s.add(ctx, d)
		if err != nil {
			errs = append(errs, &core.RowError{Row: i + 1, Err: err})
			continue
		}
		added = append(added, tx)
	}
	s.logger.InfoContext(ctx, "Import finished",
		log.FieldOperation, log.OpImport,
		log.FieldCount, len(added),
		"failed", len(errs))
	if len(added) > 0 {
		s.afterWrite(ctx)
	}
	return added, errs
}

// Close drops the mirror and undo history. Later calls return ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	s.txs = []core.Transaction{}
	s.mu.Unlock()
	s.undo.Clear()
	s.logger.Debug("Session closed")
}

func (s *Session) afterWrite(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) {
		s.logger.WarnContext(ctx, "Refresh after write failed", log.FieldError, err.Error())
	}
}

func (s *Session) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Event not published",
			log.FieldEventType, string(e.Type),
			log.FieldError, err.Error())
	}
}

func (s *Session) logFailure(ctx context.Context, msg string, err error, op string, tx core.Transaction) {
	fields := log.NewFields().
		WithOwner(s.ownerID).
		WithTransaction(tx.ID, tx.ClientID, tx.Amount.Cents, string(tx.Type), tx.Tag)
	s.slog.LogError(ctx, msg, err, log.ComponentSession, op, fields)
}

// reverter applies undo inverses; the caller holds writeMu.
type reverter struct{ s *Session }

func (r reverter) FindByClientID(_ context.Context, clientID string) (core.Transaction, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, tx := range r.s.txs {
		if tx.ClientID == clientID {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

func (r reverter) Remove(ctx context.Context, id string) error {
	if err := r.s.store.Remove(ctx, r.s.ownerID, id); err != nil {
		return err
	}
	r.s.publish(ctx, events.NewTransactionEvent(events.TransactionDeleted, r.s.ownerID, id))
	return nil
}

func (r reverter) Recreate(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.ID = ""
	tx.OwnerID = r.s.ownerID
	created, err := r.s.store.Create(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	r.s.publish(ctx, events.NewTransactionEvent(events.TransactionCreated, r.s.ownerID, created.ID))
	return created, nil
}

func (r reverter) Replace(ctx context.Context, before core.Transaction) error {
	if _, err := r.s.store.Update(ctx, r.s.ownerID, before.ID, before); err != nil {
		return err
	}
	r.s.publish(ctx, events.NewTransactionEvent(events.TransactionUpdated, r.s.ownerID, before.ID))
	return nil
}
