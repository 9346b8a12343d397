package session

import (
	"context"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/identity"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

const defaultMaxSessions = 1000

// Manager hands out one Session per owner. Sessions are created lazily,
// closed when their owner signs out and evicted after ttl of inactivity.
type Manager struct {
	store       store.TransactionStore
	opts        Options
	sessions    *cache.LRUCache[*Session]
	logger      *log.Logger
	unsubscribe func()
}

func NewManager(st store.TransactionStore, opts Options, ttl time.Duration, maxSessions int) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if maxSessions < 1 {
		maxSessions = defaultMaxSessions
	}
	m := &Manager{
		store:  st,
		opts:   opts,
		logger: opts.Logger.WithComponent(log.ComponentSession),
	}
	m.sessions = cache.NewLRUCache[*Session](maxSessions, ttl).
		OnEvict(func(owner string, s *Session) {
			s.Close()
			m.logger.Debug("Session ended", log.FieldOwnerID, owner)
		})
	return m
}

// Observe ends an owner's session whenever p reports a sign-out.
func (m *Manager) Observe(p identity.Provider) {
	cancel := p.Subscribe(func(c identity.Change) {
		if !c.SignedIn {
			m.End(c.User.ID)
		}
	})
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.unsubscribe = cancel
}

// Get returns the owner's session, loading its mirror on first use.
func (m *Manager) Get(ctx context.Context, ownerID string) (*Session, error) {
	s := m.sessions.GetOrCreate(ownerID, func() *Session {
		return New(ownerID, m.store, m.opts)
	})
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) End(ownerID string) {
	m.sessions.Delete(ownerID)
}

func (m *Manager) Len() int { return m.sessions.Size() }

// CleanExpired closes idle sessions; Manager is a cache.Cleaner.
func (m *Manager) CleanExpired() int {
	return m.sessions.CleanExpired()
}

// Close ends every session and stops observing sign-outs.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.sessions.Clear()
}
