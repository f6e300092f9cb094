// Package memory is the in-process backend used in mock mode. It starts with
// the demo user, the sample expenses and the fixed category table.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/core"
)

type userRecord struct {
	user core.User
	hash string
}

type Store struct {
	mu          sync.Mutex
	latency     time.Duration
	listLatency time.Duration
	now         func() time.Time

	cats       []core.Category
	items      []core.Expense
	nextID     int64
	users      []userRecord
	nextUserID int64
}

type Option func(*Store)

// WithLatency delays every call by op, and listings by list, to mimic a
// remote API. Delays honour context cancellation.
func WithLatency(op, list time.Duration) Option {
	return func(s *Store) {
		s.latency = op
		s.listLatency = list
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDemoPassword sets the password hash of the seeded demo account so it
// can log in. Without it the demo account cannot authenticate.
func WithDemoPassword(hash string) Option {
	return func(s *Store) {
		for i := range s.users {
			if s.users[i].user.UserID == DemoUserID {
				s.users[i].hash = hash
			}
		}
	}
}

// Empty drops the sample expenses and the demo user. Categories stay.
func Empty() Option {
	return func(s *Store) {
		s.items = nil
		s.users = nil
		s.nextID = 1
		s.nextUserID = 1
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		cats:       SeedCategories(),
		items:      SeedExpenses(),
		users:      []userRecord{{user: demoUser()}},
		nextUserID: DemoUserID + 1,
	}
	for _, e := range s.items {
		if e.ExpenseID >= s.nextID {
			s.nextID = e.ExpenseID + 1
		}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func notFound(id int64) error {
	return fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
}

// Create assigns the next id. The category name falls back to "Other" for
// unknown ids.
func (s *Store) Create(ctx context.Context, req core.ExpenseRequest) (core.Expense, error) {
	if err := wait(ctx, s.latency); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := core.Expense{
		ExpenseID: s.nextID,
		CreatedAt: s.now().UTC(),
		UserID:    req.UserID,
		Username:  s.usernameLocked(req.UserID),
	}.Apply(req, core.CategoryName(s.cats, req.CategoryID))
	s.nextID++
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) Get(ctx context.Context, id int64) (core.Expense, error) {
	if err := wait(ctx, s.latency); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], nil
	}
	return core.Expense{}, notFound(id)
}

func (s *Store) Update(ctx context.Context, id int64, req core.ExpenseRequest) (core.Expense, error) {
	if err := wait(ctx, s.latency); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return core.Expense{}, notFound(id)
	}
	s.items[i] = s.items[i].Apply(req, core.CategoryName(s.cats, req.CategoryID))
	return s.items[i], nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := wait(ctx, s.latency); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return notFound(id)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *Store) List(ctx context.Context, userID int64, filter core.ExpenseFilter) ([]core.Expense, error) {
	if err := wait(ctx, s.listLatency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		if e.UserID == userID && filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

func (s *Store) CreateUser(_ context.Context, username, email, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.users {
		if r.user.Username == username || strings.EqualFold(r.user.Email, email) {
			return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrConflict)
		}
	}
	u := core.User{
		UserID:    s.nextUserID,
		Username:  username,
		Email:     email,
		CreatedAt: s.now().UTC(),
	}
	s.nextUserID++
	s.users = append(s.users, userRecord{user: u, hash: passwordHash})
	return u, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (core.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.users {
		if r.user.Username == username {
			return r.user, r.hash, nil
		}
	}
	return core.User{}, "", fmt.Errorf("user %q: %w", username, core.ErrNotFound)
}

func (s *Store) UserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.users {
		if r.user.UserID == id {
			return r.user, nil
		}
	}
	return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
}

func (s *Store) indexLocked(id int64) int {
	for i, e := range s.items {
		if e.ExpenseID == id {
			return i
		}
	}
	return -1
}

func (s *Store) usernameLocked(id int64) string {
	for _, r := range s.users {
		if r.user.UserID == id {
			return r.user.Username
		}
	}
	return ""
}
