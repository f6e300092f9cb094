package ports

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters. Every backend (memory, sqlite, remote)
// implements the same set and is chosen once at composition time.
type (
	ExpenseRepository interface {
		// Create stores a new expense and returns it with id, createdAt and
		// categoryName filled in.
		Create(ctx context.Context, req core.ExpenseRequest) (core.Expense, error)
		Get(ctx context.Context, id int64) (core.Expense, error)
		// Update replaces the mutable fields of an existing expense.
		Update(ctx context.Context, id int64, req core.ExpenseRequest) (core.Expense, error)
		// Delete returns core.ErrNotFound when id does not exist.
		Delete(ctx context.Context, id int64) error
		// List returns the expenses owned by userID that match filter, in no
		// particular order.
		List(ctx context.Context, userID int64, filter core.ExpenseFilter) ([]core.Expense, error)
	}

	// ExpenseLister is the read side shared by repositories and
	// services.ExpenseService.
	ExpenseLister interface {
		List(ctx context.Context, userID int64, filter core.ExpenseFilter) ([]core.Expense, error)
	}

	CategoryRepository interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// Authenticator exchanges credentials for a bearer token and profile.
	Authenticator interface {
		Signup(ctx context.Context, req core.SignupRequest) (core.AuthResponse, error)
		Login(ctx context.Context, req core.LoginRequest) (core.AuthResponse, error)
	}

	// UserRepository stores accounts for backends that authenticate locally.
	UserRepository interface {
		// CreateUser returns core.ErrConflict when the username or email is taken.
		CreateUser(ctx context.Context, username, email, passwordHash string) (core.User, error)
		// UserByUsername returns the user and its password hash, or core.ErrNotFound.
		UserByUsername(ctx context.Context, username string) (core.User, string, error)
		UserByID(ctx context.Context, id int64) (core.User, error)
	}
)
