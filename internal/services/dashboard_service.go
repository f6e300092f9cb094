package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
	"expensetracker/internal/summary"
)

// Dashboard is everything the expense overview shows for one filter.
type Dashboard struct {
	Filter     core.ExpenseFilter `json:"-"`
	Expenses   []core.Expense     `json:"expenses"`
	Categories []core.Category    `json:"categories"`
	Totals     summary.Totals     `json:"summary"`
	Chart      []summary.Slice    `json:"chart"`
}

type DashboardService struct {
	expenses   ports.ExpenseLister
	categories ports.CategoryRepository
	logger     *log.Logger
}

func NewDashboardService(expenses ports.ExpenseLister, categories ports.CategoryRepository, logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.Nop()
	}
	return &DashboardService{
		expenses:   expenses,
		categories: categories,
		logger:     logger.WithComponent(log.ComponentDashboard),
	}
}

// Load fetches categories and the filtered expenses concurrently, then
// computes totals and the chart. An inverted date range is clamped first.
func (s *DashboardService) Load(ctx context.Context, userID int64, filter core.ExpenseFilter) (Dashboard, error) {
	filter = filter.NormalizeRange(true)

	var (
		cats []core.Category
		list []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = s.categories.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		list, err = s.expenses.List(gctx, userID, filter)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Dashboard load failed", log.FieldUserID, userID, log.FieldError, err)
		return Dashboard{}, err
	}

	core.SortExpenses(list)
	s.logger.DebugContext(ctx, "Dashboard loaded", log.FieldUserID, userID, "count", len(list))
	return Dashboard{
		Filter:     filter,
		Expenses:   list,
		Categories: cats,
		Totals:     summary.Summarize(list),
		Chart:      summary.Chart(list),
	}, nil
}
