package core

import "sort"

// UnknownCategoryName is stored on an expense whose category id is not in
// the lookup table.
const UnknownCategoryName = "Other"

// CategoryName resolves id against categories, falling back to "Other".
func CategoryName(categories []Category, id int64) string {
	for _, c := range categories {
		if c.CategoryID == id {
			return c.Name
		}
	}
	return UnknownCategoryName
}

// CategoriesFor returns the categories usable for expenses of type t, in id order.
func CategoriesFor(categories []Category, t ExpenseType) []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.AppliesTo(t) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// SortExpenses orders expenses newest first by expense date, ties broken by
// descending id.
func SortExpenses(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		a, b := expenses[i], expenses[j]
		if !a.ExpenseDate.Equal(b.ExpenseDate) {
			return a.ExpenseDate.After(b.ExpenseDate)
		}
		return a.ExpenseID > b.ExpenseID
	})
}
