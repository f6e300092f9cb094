package core

import (
	"net/url"
	"strconv"
	"strings"
)

// ExpenseFilter narrows an expense listing. Zero values mean "no constraint".
// Date bounds are inclusive.
type ExpenseFilter struct {
	Type       ExpenseType
	StartDate  Date
	EndDate    Date
	CategoryID int64
}

// Matches reports whether e satisfies every set constraint.
func (f ExpenseFilter) Matches(e Expense) bool {
	if f.Type != "" && e.ExpenseType != f.Type {
		return false
	}
	if f.CategoryID != 0 && e.CategoryID != f.CategoryID {
		return false
	}
	if !f.StartDate.IsZero() && e.ExpenseDate.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && e.ExpenseDate.After(f.EndDate) {
		return false
	}
	return true
}

// IsEmpty reports whether the filter matches every expense.
func (f ExpenseFilter) IsEmpty() bool {
	return f == ExpenseFilter{}
}

// NormalizeRange keeps the range ordered. When start is after end the bound
// that was edited last wins and the other one is moved onto it.
func (f ExpenseFilter) NormalizeRange(startEditedLast bool) ExpenseFilter {
	if f.StartDate.IsZero() || f.EndDate.IsZero() || !f.StartDate.After(f.EndDate) {
		return f
	}
	if startEditedLast {
		f.EndDate = f.StartDate
	} else {
		f.StartDate = f.EndDate
	}
	return f
}

// Query encodes the filter as the query string of GET /expenses.
func (f ExpenseFilter) Query(userID int64) url.Values {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if !f.StartDate.IsZero() {
		q.Set("startDate", f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		q.Set("endDate", f.EndDate.String())
	}
	if f.CategoryID != 0 {
		q.Set("categoryId", strconv.FormatInt(f.CategoryID, 10))
	}
	return q
}

// ParseFilterQuery is the inverse of Query. The userId parameter is returned
// separately and is 0 when absent.
func ParseFilterQuery(q url.Values) (int64, ExpenseFilter, error) {
	var (
		f    ExpenseFilter
		errs ValidationErrors
		uid  int64
	)
	if v := strings.TrimSpace(q.Get("userId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs.Add(NewValidationError("userId", "userId must be a number"))
		}
		uid = id
	}
	if v := q.Get("type"); v != "" {
		t, err := ParseExpenseType(v)
		if err != nil {
			errs.Add(err)
		}
		f.Type = t
	}
	if v := q.Get("startDate"); v != "" {
		d, err := ParseDate(v)
		if err != nil {
			errs.Add(err)
		}
		f.StartDate = d
	}
	if v := q.Get("endDate"); v != "" {
		d, err := ParseDate(v)
		if err != nil {
			errs.Add(err)
		}
		f.EndDate = d
	}
	if v := strings.TrimSpace(q.Get("categoryId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs.Add(NewValidationError("categoryId", "categoryId must be a number"))
		}
		f.CategoryID = id
	}
	if err := errs.ErrOrNil(); err != nil {
		return 0, ExpenseFilter{}, err
	}
	return uid, f, nil
}
