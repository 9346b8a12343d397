// Package identity authenticates users and tells observers when a user signs
// in or out.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

const minPasswordLength = 6

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	ErrInvalidEmail = errors.New("invalid email")
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Change is emitted whenever a user's sign-in state changes.
type Change struct {
	User     User
	SignedIn bool
}

type Provider interface {
	SignUp(ctx context.Context, name, email, password string) (User, string, error)
	SignIn(ctx context.Context, email, password string) (User, string, error)
	SignOut(ctx context.Context, token string) error
	// Resolve maps a bearer token to its user or core.ErrUnauthenticated.
	Resolve(ctx context.Context, token string) (User, error)
	// Subscribe registers fn for every Change and returns a cancel func.
	Subscribe(fn func(Change)) func()
}

// Local checks bcrypt password hashes against an account store and keeps
// bearer tokens in memory. Tokens do not survive a restart; accounts and the
// owner ids derived from them do.
type Local struct {
	accounts store.AccountStore
	mu       sync.RWMutex
	tokens   map[string]User
	subs     map[int]func(Change)
	nextSub  int
	cost     int
	logger   *log.Logger
}

var _ Provider = (*Local)(nil)

func NewLocal(accounts store.AccountStore, logger *log.Logger) *Local {
	if logger == nil {
		logger = log.Discard()
	}
	return &Local{
		accounts: accounts,
		tokens:   make(map[string]User),
		subs:     make(map[int]func(Change)),
		cost:     bcrypt.DefaultCost,
		logger:   logger.WithComponent(log.ComponentIdentity),
	}
}

// WithCost sets the bcrypt cost; tests use bcrypt.MinCost.
func (l *Local) WithCost(cost int) *Local {
	l.cost = cost
	return l
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &core.ValidationError{Field: "email", Err: ErrInvalidEmail}
	}
	return email, nil
}

// OwnerID returns the stable owner id of an email address. The same address
// always maps to the same id, so stored data stays reachable across restarts
// and can be seeded before the account exists.
func OwnerID(email string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(), nil
}

func userOf(acc core.Account) User {
	return User{ID: acc.ID, Name: acc.Name, Email: acc.Email, CreatedAt: acc.CreatedAt}
}

func (l *Local) SignUp(ctx context.Context, name, email, password string) (User, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, "", err
	}
	if len(password) < minPasswordLength {
		return User{}, "", &core.ValidationError{Field: "password", Err: ErrWeakPassword}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return User{}, "", &core.ValidationError{Field: "password", Err: err}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	id, _ := OwnerID(email)

	acc := core.Account{ID: id, Name: name, Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := l.accounts.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			return User{}, "", &core.ValidationError{Field: "email", Err: ErrEmailTaken}
		}
		l.logger.ErrorContext(ctx, "Failed to store account", log.FieldError, err.Error())
		return User{}, "", err
	}
	user := userOf(acc)
	token := l.issue(user)

	l.logger.InfoContext(ctx, "User signed up", log.FieldOwnerID, user.ID)
	l.emit(Change{User: user, SignedIn: true})
	return user, token, nil
}

func (l *Local) SignIn(ctx context.Context, email, password string) (User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	acc, err := l.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return User{}, "", core.ErrUnauthenticated
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to load account", log.FieldError, err.Error())
		return User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		l.logger.WarnContext(ctx, "Sign-in rejected", log.FieldOwnerID, acc.ID)
		return User{}, "", core.ErrUnauthenticated
	}

	user := userOf(acc)
	token := l.issue(user)

	l.logger.InfoContext(ctx, "User signed in", log.FieldOwnerID, user.ID)
	l.emit(Change{User: user, SignedIn: true})
	return user, token, nil
}

func (l *Local) issue(u User) string {
	token := newToken()
	l.mu.Lock()
	l.tokens[token] = u
	l.mu.Unlock()
	return token
}

func (l *Local) SignOut(ctx context.Context, token string) error {
	l.mu.Lock()
	user, ok := l.tokens[token]
	if !ok {
		l.mu.Unlock()
		return core.ErrUnauthenticated
	}
	delete(l.tokens, token)
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "User signed out", log.FieldOwnerID, user.ID)
	l.emit(Change{User: user, SignedIn: false})
	return nil
}

func (l *Local) Resolve(_ context.Context, token string) (User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	user, ok := l.tokens[token]
	if !ok {
		return User{}, core.ErrUnauthenticated
	}
	return user, nil
}

func (l *Local) Subscribe(fn func(Change)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *Local) emit(c Change) {
	l.mu.RLock()
	subs := make([]func(Change), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.RUnlock()
	for _, fn := range subs {
		fn(c)
	}
}

func newToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("identity: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
