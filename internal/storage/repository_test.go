package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
)

var (
	_ ports.ExpenseRepository  = (*SQLiteRepository)(nil)
	_ ports.CategoryRepository = (*SQLiteRepository)(nil)
	_ ports.UserRepository     = (*SQLiteRepository)(nil)
)

type RepositoryTestSuite struct {
	suite.Suite
	repo   *SQLiteRepository
	ctx    context.Context
	user   core.User
	now    time.Time
	dbPath string
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	s.dbPath = filepath.Join(s.T().TempDir(), "data", "expenses.db")
	repo, err := NewSQLiteRepository(s.dbPath, WithClock(func() time.Time { return s.now }))
	require.NoError(s.T(), err, "failed to create test database")
	s.repo = repo

	u, err := repo.CreateUser(s.ctx, "demo", "demo@example.com", "hash")
	require.NoError(s.T(), err)
	s.user = u
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) request(date string, amount string, t core.ExpenseType, cat int64) core.ExpenseRequest {
	d, err := core.ParseDate(date)
	require.NoError(s.T(), err)
	return core.ExpenseRequest{
		Amount:      core.MustMoney(amount),
		ExpenseDate: d,
		Description: "expense on " + date,
		ExpenseType: t,
		UserID:      s.user.UserID,
		CategoryID:  cat,
	}
}

func (s *RepositoryTestSuite) TestCategoriesSeeded() {
	cats, err := s.repo.ListCategories(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), cats, 8)
	assert.Equal(s.T(), "Food & Dining", cats[0].Name)
	assert.Equal(s.T(), core.ApplicableOrganizational, cats[7].ApplicableTo)
}

func (s *RepositoryTestSuite) TestCreateAndGet() {
	req := s.request("2026-02-01", "45.50", core.Personal, 1)
	created, err := s.repo.Create(s.ctx, req)
	require.NoError(s.T(), err)

	assert.Positive(s.T(), created.ExpenseID)
	assert.Equal(s.T(), "Food & Dining", created.CategoryName)
	assert.Equal(s.T(), "demo", created.Username)
	assert.True(s.T(), created.CreatedAt.Equal(s.now))
	assert.True(s.T(), created.Amount.Equal(req.Amount))
	assert.True(s.T(), created.ExpenseDate.Equal(req.ExpenseDate))

	got, err := s.repo.Get(s.ctx, created.ExpenseID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.ExpenseID, got.ExpenseID)
	assert.Equal(s.T(), req.Description, got.Description)
	assert.Equal(s.T(), "45.50", got.Amount.StringFixed(2))

	second, err := s.repo.Create(s.ctx, req)
	require.NoError(s.T(), err)
	assert.Greater(s.T(), second.ExpenseID, created.ExpenseID)
}

func (s *RepositoryTestSuite) TestUnknownCategoryIsOther() {
	created, err := s.repo.Create(s.ctx, s.request("2026-02-01", "1", core.Personal, 99))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Other", created.CategoryName)
}

func (s *RepositoryTestSuite) TestUpdate() {
	created, err := s.repo.Create(s.ctx, s.request("2026-02-01", "10", core.Personal, 1))
	require.NoError(s.T(), err)

	s.now = s.now.Add(time.Hour)
	upd := s.request("2026-02-03", "85", core.Organizational, 8)
	upd.Description = "Printer paper and ink"
	got, err := s.repo.Update(s.ctx, created.ExpenseID, upd)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), created.ExpenseID, got.ExpenseID)
	assert.Equal(s.T(), created.UserID, got.UserID)
	assert.True(s.T(), got.CreatedAt.Equal(created.CreatedAt))
	assert.Equal(s.T(), "Office Supplies", got.CategoryName)
	assert.Equal(s.T(), core.Organizational, got.ExpenseType)
	assert.Equal(s.T(), "Printer paper and ink", got.Description)

	_, err = s.repo.Update(s.ctx, 4040, upd)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestDelete() {
	created, err := s.repo.Create(s.ctx, s.request("2026-02-01", "10", core.Personal, 1))
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.repo.Delete(s.ctx, created.ExpenseID))
	_, err = s.repo.Get(s.ctx, created.ExpenseID)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
	assert.ErrorIs(s.T(), s.repo.Delete(s.ctx, created.ExpenseID), core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestListFilters() {
	other, err := s.repo.CreateUser(s.ctx, "alice", "alice@example.com", "hash")
	require.NoError(s.T(), err)

	fixtures := []core.ExpenseRequest{
		s.request("2026-01-28", "450", core.Organizational, 7),
		s.request("2026-02-01", "45.50", core.Personal, 1),
		s.request("2026-02-03", "85", core.Organizational, 8),
		s.request("2026-02-04", "180", core.Personal, 3),
		s.request("2026-02-06", "95.50", core.Personal, 1),
	}
	for _, f := range fixtures {
		_, err := s.repo.Create(s.ctx, f)
		require.NoError(s.T(), err)
	}
	foreign := s.request("2026-02-02", "1", core.Personal, 1)
	foreign.UserID = other.UserID
	_, err = s.repo.Create(s.ctx, foreign)
	require.NoError(s.T(), err)

	cases := []struct {
		name   string
		filter core.ExpenseFilter
		want   int
	}{
		{"all", core.ExpenseFilter{}, 5},
		{"personal", core.ExpenseFilter{Type: core.Personal}, 3},
		{"category", core.ExpenseFilter{CategoryID: 1}, 2},
		{"inclusive range", core.ExpenseFilter{StartDate: core.NewDate(2026, 2, 1), EndDate: core.NewDate(2026, 2, 4)}, 3},
		{"combined", core.ExpenseFilter{Type: core.Personal, CategoryID: 1, StartDate: core.NewDate(2026, 2, 2)}, 1},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			list, err := s.repo.List(s.ctx, s.user.UserID, tc.filter)
			require.NoError(s.T(), err)
			assert.Len(s.T(), list, tc.want)
			for _, e := range list {
				assert.Equal(s.T(), s.user.UserID, e.UserID)
				assert.True(s.T(), tc.filter.Matches(e))
			}
		})
	}
}

func (s *RepositoryTestSuite) TestUsers() {
	_, err := s.repo.CreateUser(s.ctx, "demo", "other@example.com", "h")
	assert.ErrorIs(s.T(), err, core.ErrConflict)
	_, err = s.repo.CreateUser(s.ctx, "other", "DEMO@example.com", "h")
	assert.ErrorIs(s.T(), err, core.ErrConflict)

	u, hash, err := s.repo.UserByUsername(s.ctx, "demo")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.user.UserID, u.UserID)
	assert.Equal(s.T(), "hash", hash)

	byID, err := s.repo.UserByID(s.ctx, s.user.UserID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "demo@example.com", byID.Email)

	_, _, err = s.repo.UserByUsername(s.ctx, "ghost")
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestReopenKeepsData() {
	created, err := s.repo.Create(s.ctx, s.request("2026-02-01", "10", core.Personal, 1))
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.repo.Close())

	s.repo, err = NewSQLiteRepository(s.dbPath)
	require.NoError(s.T(), err)

	list, err := s.repo.List(s.ctx, s.user.UserID, core.ExpenseFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), created.ExpenseID, list[0].ExpenseID)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestMigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "expenses.db")
	require.NoError(t, RunMigrations(dbPath))
	require.NoError(t, RunMigrations(dbPath))

	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()
	cats, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 8)
}
