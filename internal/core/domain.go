package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Personal       ExpenseType = "PERSONAL"
	Organizational ExpenseType = "ORGANIZATIONAL"

	ApplicablePersonal       CategoryApplicableTo = "PERSONAL"
	ApplicableOrganizational CategoryApplicableTo = "ORGANIZATIONAL"
	ApplicableBoth           CategoryApplicableTo = "BOTH"
)

const maxDescriptionLen = 200

type (
	ExpenseType          string
	CategoryApplicableTo string

	User struct {
		UserID    int64     `json:"userId"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Expense struct {
		ExpenseID    int64       `json:"expenseId"`
		Amount       Money       `json:"amount"`
		ExpenseDate  Date        `json:"expenseDate"`
		Description  string      `json:"description"`
		ExpenseType  ExpenseType `json:"expenseType"`
		CreatedAt    time.Time   `json:"createdAt"`
		UserID       int64       `json:"userId"`
		Username     string      `json:"username"`
		CategoryID   int64       `json:"categoryId"`
		CategoryName string      `json:"categoryName"`
	}

	Category struct {
		CategoryID   int64                `json:"categoryId"`
		Name         string               `json:"name"`
		ApplicableTo CategoryApplicableTo `json:"applicableTo"`
	}

	// ExpenseRequest carries the mutable fields of an expense plus its owner.
	ExpenseRequest struct {
		Amount      Money       `json:"amount"`
		ExpenseDate Date        `json:"expenseDate"`
		Description string      `json:"description"`
		ExpenseType ExpenseType `json:"expenseType"`
		UserID      int64       `json:"userId"`
		CategoryID  int64       `json:"categoryId"`
	}

	AuthResponse struct {
		Token     string    `json:"token"`
		UserID    int64     `json:"userId"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

// IsValid reports whether t is one of the two known expense types.
func (t ExpenseType) IsValid() bool {
	return t == Personal || t == Organizational
}

// ParseExpenseType accepts the wire value case-insensitively.
func ParseExpenseType(s string) (ExpenseType, error) {
	t := ExpenseType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", NewValidationError("expenseType", fmt.Sprintf("unknown expense type %q", s))
	}
	return t, nil
}

func (a CategoryApplicableTo) IsValid() bool {
	switch a {
	case ApplicablePersonal, ApplicableOrganizational, ApplicableBoth:
		return true
	}
	return false
}

// AppliesTo reports whether the category may be used for expenses of type t.
func (c Category) AppliesTo(t ExpenseType) bool {
	if c.ApplicableTo == ApplicableBoth {
		return true
	}
	return string(c.ApplicableTo) == string(t)
}

// User extracts the profile part of an auth response.
func (r AuthResponse) User() User {
	return User{
		UserID:    r.UserID,
		Username:  r.Username,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
	}
}

// Validate checks the request against the expense invariants. today is the
// caller's current calendar date; expense dates after it are rejected.
func (r ExpenseRequest) Validate(today Date) error {
	var errs ValidationErrors
	if err := r.Amount.Validate(); err != nil {
		errs.Add(err)
	}
	switch {
	case r.ExpenseDate.IsZero():
		errs.Add(NewValidationError("expenseDate", "expense date is required"))
	case r.ExpenseDate.After(today):
		errs.Add(ErrFutureDate)
	}
	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		errs.Add(ErrEmptyDescription)
	} else if len(desc) > maxDescriptionLen {
		errs.Add(NewValidationError("description", fmt.Sprintf("description too long (max %d characters)", maxDescriptionLen)))
	}
	if !r.ExpenseType.IsValid() {
		errs.Add(NewValidationError("expenseType", "expense type must be PERSONAL or ORGANIZATIONAL"))
	}
	if r.CategoryID <= 0 {
		errs.Add(NewValidationError("categoryId", "category is required"))
	}
	if r.UserID <= 0 {
		errs.Add(NewValidationError("userId", "user is required"))
	}
	return errs.ErrOrNil()
}

// Apply replaces the mutable fields of e with the request values. Identity,
// ownership and creation time are left untouched.
func (e Expense) Apply(r ExpenseRequest, categoryName string) Expense {
	e.Amount = r.Amount
	e.ExpenseDate = r.ExpenseDate
	e.Description = r.Description
	e.ExpenseType = r.ExpenseType
	e.CategoryID = r.CategoryID
	e.CategoryName = categoryName
	return e
}
