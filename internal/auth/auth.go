package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/adeleeuw3/NLVreport/internal/store"
)

// Messages are shown to the user verbatim.
var (
	ErrInvalidEmail      = errors.New("auth/invalid-email: the email address is badly formatted")
	ErrWeakPassword      = errors.New("auth/weak-password: password should be at least 6 characters")
	ErrEmailInUse        = errors.New("auth/email-already-in-use: the email address is already in use by another account")
	ErrInvalidCredential = errors.New("auth/invalid-credential: the email or password is incorrect")
	ErrSignedOut         = errors.New("auth/no-current-user: sign in first")
)

const (
	minPasswordLen = 6
	currentKey     = "auth.current_session"
)

// User is the public view of an identity.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is a signed-in user plus the token that proves it.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Service signs users up, in and out. The current session is persisted in
// the store so it survives process restarts.
type Service struct {
	Store *store.Store
	Cost  int

	mu   sync.Mutex
	subs map[int]chan *User
	next int
}

// NewService returns a Service over s.
func NewService(s *store.Store) *Service {
	return &Service{Store: s, Cost: bcrypt.DefaultCost}
}

// SignUp creates an identity and signs it in.
func (a *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	row, err := a.Store.CreateUser(ctx, email, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrEmailInUse
	}
	if err != nil {
		return nil, err
	}
	return a.start(ctx, row)
}

// SignIn verifies credentials and makes the user current.
func (a *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	row, err := a.Store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return a.start(ctx, row)
}

// SignOut revokes the current session, if any.
func (a *Service) SignOut(ctx context.Context) error {
	token, err := a.Store.GetKV(ctx, currentKey)
	if err != nil {
		return err
	}
	if token != "" {
		if err := a.Store.DeleteSession(ctx, token); err != nil {
			return err
		}
	}
	if err := a.Store.DeleteKV(ctx, currentKey); err != nil {
		return err
	}
	a.publish(nil)
	return nil
}

// Revoke invalidates a bearer token without touching the current session.
func (a *Service) Revoke(ctx context.Context, token string) error {
	return a.Store.DeleteSession(ctx, token)
}

// Current returns the signed-in user, or ErrSignedOut.
func (a *Service) Current(ctx context.Context) (*User, error) {
	token, err := a.Store.GetKV(ctx, currentKey)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrSignedOut
	}
	u, err := a.UserForToken(ctx, token)
	if errors.Is(err, ErrSignedOut) {
		_ = a.Store.DeleteKV(ctx, currentKey)
	}
	return u, err
}

// UserForToken resolves a bearer token.
func (a *Service) UserForToken(ctx context.Context, token string) (*User, error) {
	userID, err := a.Store.SessionUser(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSignedOut
	}
	if err != nil {
		return nil, err
	}
	row, err := a.Store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSignedOut
	}
	if err != nil {
		return nil, err
	}
	u := publicUser(row)
	return &u, nil
}

// Subscribe returns a stream of current-user changes. A nil user means
// signed out. The returned func stops the subscription and closes the channel.
func (a *Service) Subscribe() (<-chan *User, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.subs == nil {
		a.subs = make(map[int]chan *User)
	}
	id := a.next
	a.next++
	ch := make(chan *User, 4)
	a.subs[id] = ch
	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if c, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(c)
		}
	}
}

func (a *Service) start(ctx context.Context, row *store.UserRow) (*Session, error) {
	token := uuid.NewString()
	if err := a.Store.CreateSession(ctx, token, row.ID); err != nil {
		return nil, err
	}
	if err := a.Store.SetKV(ctx, currentKey, token); err != nil {
		return nil, err
	}
	u := publicUser(row)
	a.publish(&u)
	return &Session{Token: token, User: u}, nil
}

// publish drops the event for subscribers that are not keeping up.
func (a *Service) publish(u *User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

func (a *Service) cost() int {
	if a.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return a.Cost
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func publicUser(row *store.UserRow) User {
	return User{ID: row.ID, Email: row.Email, CreatedAt: row.CreatedAt}
}
