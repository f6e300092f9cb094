package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table columns; conversion to domain types happens
// in the repository.
type (
	ExpenseRow struct {
		ID           int64
		Amount       string
		ExpenseDate  string
		Description  string
		ExpenseType  string
		CategoryID   int64
		CategoryName string
		UserID       int64
		Username     string
		CreatedAt    string
	}

	CategoryRow struct {
		ID           int64
		Name         string
		ApplicableTo string
	}

	UserRow struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    string
	}
)

const expenseColumns = `e.id, e.amount, e.expense_date, e.description, e.expense_type,
       e.category_id, e.category_name, e.user_id, COALESCE(u.username, ''), e.created_at`

func scanExpense(row interface{ Scan(...interface{}) error }) (ExpenseRow, error) {
	var e ExpenseRow
	err := row.Scan(
		&e.ID, &e.Amount, &e.ExpenseDate, &e.Description, &e.ExpenseType,
		&e.CategoryID, &e.CategoryName, &e.UserID, &e.Username, &e.CreatedAt,
	)
	return e, err
}

const createExpense = `INSERT INTO expenses (amount, expense_date, description, expense_type, category_id, category_name, user_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type CreateExpenseParams struct {
	Amount       string
	ExpenseDate  string
	Description  string
	ExpenseType  string
	CategoryID   int64
	CategoryName string
	UserID       int64
	CreatedAt    string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createExpense,
		arg.Amount, arg.ExpenseDate, arg.Description, arg.ExpenseType,
		arg.CategoryID, arg.CategoryName, arg.UserID, arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getExpense = `SELECT ` + expenseColumns + `
FROM expenses e LEFT JOIN users u ON u.id = e.user_id
WHERE e.id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (ExpenseRow, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const updateExpense = `UPDATE expenses
SET amount = ?, expense_date = ?, description = ?, expense_type = ?, category_id = ?, category_name = ?
WHERE id = ?`

type UpdateExpenseParams struct {
	ID           int64
	Amount       string
	ExpenseDate  string
	Description  string
	ExpenseType  string
	CategoryID   int64
	CategoryName string
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		arg.Amount, arg.ExpenseDate, arg.Description, arg.ExpenseType,
		arg.CategoryID, arg.CategoryName, arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Empty strings and zero ids disable the corresponding condition. Dates are
// stored as YYYY-MM-DD so text comparison is calendar order.
const listExpenses = `SELECT ` + expenseColumns + `
FROM expenses e LEFT JOIN users u ON u.id = e.user_id
WHERE e.user_id = ?
  AND (? = '' OR e.expense_type = ?)
  AND (? = '' OR e.expense_date >= ?)
  AND (? = '' OR e.expense_date <= ?)
  AND (? = 0 OR e.category_id = ?)
ORDER BY e.id`

type ListExpensesParams struct {
	UserID     int64
	Type       string
	StartDate  string
	EndDate    string
	CategoryID int64
}

func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses,
		arg.UserID,
		arg.Type, arg.Type,
		arg.StartDate, arg.StartDate,
		arg.EndDate, arg.EndDate,
		arg.CategoryID, arg.CategoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCategories = `SELECT id, name, applicable_to FROM categories ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var c CategoryRow
		if err := rows.Scan(&c.ID, &c.Name, &c.ApplicableTo); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createUser = `INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUser, arg.Username, arg.Email, arg.PasswordHash, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getUserByUsername = `SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (UserRow, error) {
	var u UserRow
	err := q.db.QueryRowContext(ctx, getUserByUsername, username).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUserByID = `SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (UserRow, error) {
	var u UserRow
	err := q.db.QueryRowContext(ctx, getUserByID, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}
