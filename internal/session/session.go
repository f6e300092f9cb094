// Package session tracks the signed-in user of a client process.
//
// The store is created once and passed to whatever needs the current user.
// State is hydrated from Storage at construction, replaced on login or
// signup, and cleared on logout or when the API reports the token as no
// longer valid. Subscribers get the latest state over a channel.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

type Store struct {
	mu      sync.RWMutex
	auth    ports.Authenticator
	storage Storage
	logger  *log.Logger

	user  *core.User
	token string

	subs    map[int]chan *core.User
	nextSub int
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentSession) }
}

// New hydrates the session from storage. Entries that cannot be decoded
// are dropped and the session starts logged out.
func New(auth ports.Authenticator, storage Storage, opts ...Option) (*Store, error) {
	s := &Store{
		auth:    auth,
		storage: storage,
		logger:  log.Nop(),
		subs:    map[int]chan *core.User{},
	}
	for _, o := range opts {
		o(s)
	}
	token, _, err := storage.Get(KeyToken)
	if err != nil {
		return nil, fmt.Errorf("load session token: %w", err)
	}
	raw, ok, err := storage.Get(KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if ok && raw != "" {
		var u core.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logger.Warn("Discarding unreadable stored user", log.FieldError, err)
			s.clearStorage()
			return s, nil
		}
		s.user = &u
	}
	s.token = token
	return s, nil
}

// CurrentUser returns the signed-in user, if any.
func (s *Store) CurrentUser() (core.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return core.User{}, false
	}
	return *s.user, true
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsLoggedIn requires both a user and a token.
func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

// Subscribe returns a channel that always holds the most recent state: the
// current user, or nil after logout. The current state is delivered
// immediately. Call cancel to stop receiving; the channel is then closed.
func (s *Store) Subscribe() (<-chan *core.User, func()) {
	ch := make(chan *core.User, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	deliver(ch, copyUser(s.user))
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *Store) Login(ctx context.Context, req core.LoginRequest) (core.User, error) {
	if err := req.Validate(); err != nil {
		return core.User{}, err
	}
	resp, err := s.auth.Login(ctx, req)
	if err != nil {
		s.logger.Warn("Login failed", log.FieldOperation, log.OpLogin, log.FieldError, err)
		return core.User{}, err
	}
	return s.establish(resp)
}

// Signup validates locally, including the password confirmation, before
// anything is sent.
func (s *Store) Signup(ctx context.Context, req core.SignupRequest) (core.User, error) {
	if err := req.Validate(); err != nil {
		return core.User{}, err
	}
	resp, err := s.auth.Signup(ctx, req)
	if err != nil {
		s.logger.Warn("Signup failed", log.FieldOperation, log.OpSignup, log.FieldError, err)
		return core.User{}, err
	}
	return s.establish(resp)
}

func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.clearStorage()
	s.user = nil
	s.token = ""
	s.notifyLocked()
	s.logger.Info("Logged out", log.FieldOperation, log.OpLogout)
	return err
}

// HandleUnauthorized is called when the API rejects the token. Persisted
// state is always cleared, including a user left behind without a token.
// Subscribers are only notified when a user was present.
func (s *Store) HandleUnauthorized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.user != nil
	if had || s.token != "" {
		s.logger.Warn("Session rejected by server, clearing")
	}
	if err := s.clearStorage(); err != nil {
		s.logger.Error("Failed to clear session", log.FieldError, err)
	}
	s.user = nil
	s.token = ""
	if had {
		s.notifyLocked()
	}
}

func (s *Store) establish(resp core.AuthResponse) (core.User, error) {
	u := resp.User()
	raw, err := json.Marshal(u)
	if err != nil {
		return core.User{}, fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(KeyToken, resp.Token); err != nil {
		return core.User{}, fmt.Errorf("persist token: %w", err)
	}
	if err := s.storage.Set(KeyUser, string(raw)); err != nil {
		_ = s.storage.Delete(KeyToken)
		return core.User{}, fmt.Errorf("persist user: %w", err)
	}
	s.user = &u
	s.token = resp.Token
	s.notifyLocked()
	s.logger.Info("Session established", log.FieldUserID, u.UserID)
	return u, nil
}

func (s *Store) clearStorage() error {
	errToken := s.storage.Delete(KeyToken)
	errUser := s.storage.Delete(KeyUser)
	if errToken != nil {
		return fmt.Errorf("clear token: %w", errToken)
	}
	if errUser != nil {
		return fmt.Errorf("clear user: %w", errUser)
	}
	return nil
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		deliver(ch, copyUser(s.user))
	}
}

// deliver replaces whatever is pending in ch with v.
func deliver(ch chan *core.User, v *core.User) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func copyUser(u *core.User) *core.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
