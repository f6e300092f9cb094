package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

// EventPublisher announces committed expense changes. *amqp.Client is the
// production implementation.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService validates requests, enforces ownership and publishes change
// events around an ExpenseRepository.
type ExpenseService struct {
	repo      ports.ExpenseRepository
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
	now       func() time.Time
}

type ExpenseOption func(*ExpenseService)

// WithPublisher enables change events. A nil publisher leaves them off.
func WithPublisher(p EventPublisher) ExpenseOption {
	return func(s *ExpenseService) { s.publisher = p }
}

func WithClock(now func() time.Time) ExpenseOption {
	return func(s *ExpenseService) { s.now = now }
}

func NewExpenseService(repo ports.ExpenseRepository, logger *log.Logger, opts ...ExpenseOption) *ExpenseService {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentExpense)
	s := &ExpenseService{
		repo:   repo,
		logger: logger,
		events: log.NewStructuredLogger(logger),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today is the service's current calendar date in local time; expense
// dates after it are rejected.
func (s *ExpenseService) Today() core.Date {
	return core.Today(s.now())
}

func (s *ExpenseService) Create(ctx context.Context, req core.ExpenseRequest) (core.Expense, error) {
	if err := req.Validate(s.Today()); err != nil {
		return core.Expense{}, err
	}
	e, err := s.repo.Create(ctx, req)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.events.LogExpenseChange(ctx, log.OpCreate, e.ExpenseID, e.Amount.String(), e.CategoryID, e.UserID)
	s.publish(ctx, amqp.EventExpenseCreated, e)
	return e, nil
}

// Get returns the expense only when userID owns it; anything else reads as
// not found.
func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (core.Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if e.UserID != userID {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	return e, nil
}

// Update replaces the mutable fields of an expense owned by req.UserID.
func (s *ExpenseService) Update(ctx context.Context, id int64, req core.ExpenseRequest) (core.Expense, error) {
	if err := req.Validate(s.Today()); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.Get(ctx, req.UserID, id); err != nil {
		return core.Expense{}, err
	}
	e, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	s.events.LogExpenseChange(ctx, log.OpUpdate, e.ExpenseID, e.Amount.String(), e.CategoryID, e.UserID)
	s.publish(ctx, amqp.EventExpenseUpdated, e)
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	s.events.LogExpenseChange(ctx, log.OpDelete, e.ExpenseID, e.Amount.String(), e.CategoryID, e.UserID)
	s.publish(ctx, amqp.EventExpenseDeleted, e)
	return nil
}

// List returns the user's expenses matching filter, newest first.
func (s *ExpenseService) List(ctx context.Context, userID int64, filter core.ExpenseFilter) ([]core.Expense, error) {
	list, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	core.SortExpenses(list)
	return list, nil
}

// publish never fails the caller: the change is already committed.
func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, e core.Expense) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, e, s.now())); err != nil {
		s.events.LogError(ctx, "Failed to publish expense event", err, log.OpPublish,
			log.NewFields().WithExpense(e.ExpenseID, e.Amount.String(), e.CategoryID))
	}
}

// Close releases the publisher when it holds a connection.
func (s *ExpenseService) Close() error {
	var errs []error
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
