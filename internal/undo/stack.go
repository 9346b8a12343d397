// Package undo keeps the in-memory history of a session's mutations and
// reverses them one at a time, most recent first.
package undo

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type Kind string

const (
	KindAdd    Kind = "add"
	KindDelete Kind = "delete"
	KindUpdate Kind = "update"
)

// Entry describes one mutation with enough data to compute its inverse.
// Add and delete use Transaction; update uses Before and After.
type Entry struct {
	Kind        Kind
	Transaction core.Transaction
	Before      core.Transaction
	After       core.Transaction
}

func Added(tx core.Transaction) Entry   { return Entry{Kind: KindAdd, Transaction: tx} }
func Deleted(tx core.Transaction) Entry { return Entry{Kind: KindDelete, Transaction: tx} }

func Updated(before, after core.Transaction) Entry {
	return Entry{Kind: KindUpdate, Before: before, After: after}
}

// Reverter applies inverse operations against the store and the caller's
// local view of it.
type Reverter interface {
	// FindByClientID looks up a transaction in the local mirror.
	FindByClientID(ctx context.Context, clientID string) (core.Transaction, bool)
	Remove(ctx context.Context, id string) error
	// Recreate stores tx again; the store assigns a new id.
	Recreate(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Replace(ctx context.Context, before core.Transaction) error
}

// Stack is safe for concurrent use. A limit of zero keeps every entry;
// otherwise the oldest entries are evicted once the limit is reached.
type Stack struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
	logger  *log.Logger
}

func NewStack(limit int, logger *log.Logger) *Stack {
	if logger == nil {
		logger = log.Discard()
	}
	if limit < 0 {
		limit = 0
	}
	return &Stack{limit: limit, logger: logger.WithComponent(log.ComponentUndo)}
}

// Record pushes e on top of the stack. Call it only after the store
// confirmed the mutation.
func (s *Stack) Record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if s.limit > 0 && len(s.entries) > s.limit {
		drop := len(s.entries) - s.limit
		s.entries = append(s.entries[:0:0], s.entries[drop:]...)
	}
}

func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Peek returns the top entry without removing it.
func (s *Stack) Peek() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

func (s *Stack) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

// Undo reverses the top entry. The entry is discarded when its inverse
// succeeded, or when an add can no longer be found locally. On failure the
// entry stays on top and the error is returned.
//
// Undoing a delete creates a new record with a new id; only the content is
// restored.
func (s *Stack) Undo(ctx context.Context, r Reverter) (Entry, error) {
	e, ok := s.Peek()
	if !ok {
		return Entry{}, core.ErrEmptyStack
	}

	if err := s.apply(ctx, r, e); err != nil {
		s.logger.ErrorContext(ctx, "Undo failed",
			log.FieldUndoKind, string(e.Kind),
			log.FieldError, err.Error())
		return e, err
	}

	s.pop(e)
	s.logger.InfoContext(ctx, "Undo applied", log.FieldUndoKind, string(e.Kind))
	return e, nil
}

func (s *Stack) apply(ctx context.Context, r Reverter, e Entry) error {
	switch e.Kind {
	case KindAdd:
		found, ok := r.FindByClientID(ctx, e.Transaction.ClientID)
		if !ok {
			s.logger.WarnContext(ctx, "Added transaction not found locally, nothing to undo",
				log.FieldClientID, e.Transaction.ClientID)
			return nil
		}
		if err := r.Remove(ctx, found.ID); err != nil {
			return fmt.Errorf("undo add: %w", err)
		}
	case KindDelete:
		if _, err := r.Recreate(ctx, e.Transaction); err != nil {
			return fmt.Errorf("undo delete: %w", err)
		}
	case KindUpdate:
		if err := r.Replace(ctx, e.Before); err != nil {
			return fmt.Errorf("undo update: %w", err)
		}
	default:
		return fmt.Errorf("undo: unknown entry kind %q", e.Kind)
	}
	return nil
}

// pop removes e if it is still on top. A concurrent Clear may have emptied
// the stack while the inverse was running.
func (s *Stack) pop(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	if n == 0 {
		return
	}
	top := s.entries[n-1]
	if top.Kind == e.Kind && top.Transaction.ClientID == e.Transaction.ClientID &&
		top.Transaction.ID == e.Transaction.ID && top.Before.ID == e.Before.ID {
		s.entries = s.entries[:n-1]
	}
}
