// Package storage is the SQLite backend. The schema and the category table
// are applied from embedded migrations when the repository is opened.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

type Option func(*SQLiteRepository)

func WithLogger(l *log.Logger) Option {
	return func(r *SQLiteRepository) { r.logger = l.WithComponent(log.ComponentStorage) }
}

func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) { r.now = now }
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  log.Nop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(repo)
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Create(ctx context.Context, req core.ExpenseRequest) (core.Expense, error) {
	name, err := r.categoryName(ctx, req.CategoryID)
	if err != nil {
		return core.Expense{}, err
	}
	id, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Amount:       req.Amount.String(),
		ExpenseDate:  req.ExpenseDate.String(),
		Description:  req.Description,
		ExpenseType:  string(req.ExpenseType),
		CategoryID:   req.CategoryID,
		CategoryName: name,
		UserID:       req.UserID,
		CreatedAt:    r.now().UTC().Format(timeLayout),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, id,
		log.FieldUserID, req.UserID,
		log.FieldAmount, req.Amount.String())

	return r.Get(ctx, id)
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return row.toDomain()
}

func (r *SQLiteRepository) Update(ctx context.Context, id int64, req core.ExpenseRequest) (core.Expense, error) {
	name, err := r.categoryName(ctx, req.CategoryID)
	if err != nil {
		return core.Expense{}, err
	}
	n, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		ID:           id,
		Amount:       req.Amount.String(),
		ExpenseDate:  req.ExpenseDate.String(),
		Description:  req.Description,
		ExpenseType:  string(req.ExpenseType),
		CategoryID:   req.CategoryID,
		CategoryName: name,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	if n == 0 {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	return r.Get(ctx, id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	r.logger.DebugContext(ctx, "Expense deleted from SQLite", log.FieldExpenseID, id)
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID int64, filter core.ExpenseFilter) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx, ListExpensesParams{
		UserID:     userID,
		Type:       string(filter.Type),
		StartDate:  filter.StartDate.String(),
		EndDate:    filter.EndDate.String(),
		CategoryID: filter.CategoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, c := range rows {
		out[i] = core.Category{
			CategoryID:   c.ID,
			Name:         c.Name,
			ApplicableTo: core.CategoryApplicableTo(c.ApplicableTo),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (core.User, error) {
	createdAt := r.now().UTC()
	id, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt.Format(timeLayout),
	})
	if isUniqueViolation(err) {
		return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrConflict)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return core.User{UserID: id, Username: username, Email: email, CreatedAt: createdAt}, nil
}

func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (core.User, string, error) {
	row, err := r.queries.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("get user: %w", err)
	}
	u, err := row.toDomain()
	return u, row.PasswordHash, err
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain()
}

func (r *SQLiteRepository) categoryName(ctx context.Context, id int64) (string, error) {
	cats, err := r.ListCategories(ctx)
	if err != nil {
		return "", err
	}
	return core.CategoryName(cats, id), nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func (e ExpenseRow) toDomain() (core.Expense, error) {
	amount, err := core.ParseMoney(e.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: bad amount %q", e.ID, e.Amount)
	}
	date, err := core.ParseDate(e.ExpenseDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: bad date %q", e.ID, e.ExpenseDate)
	}
	created, err := time.Parse(timeLayout, e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: bad created_at %q", e.ID, e.CreatedAt)
	}
	return core.Expense{
		ExpenseID:    e.ID,
		Amount:       amount,
		ExpenseDate:  date,
		Description:  e.Description,
		ExpenseType:  core.ExpenseType(e.ExpenseType),
		CreatedAt:    created,
		UserID:       e.UserID,
		Username:     e.Username,
		CategoryID:   e.CategoryID,
		CategoryName: e.CategoryName,
	}, nil
}

func (u UserRow) toDomain() (core.User, error) {
	created, err := time.Parse(timeLayout, u.CreatedAt)
	if err != nil {
		return core.User{}, fmt.Errorf("user %d: bad created_at %q", u.ID, u.CreatedAt)
	}
	return core.User{UserID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: created}, nil
}
