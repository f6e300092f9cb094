package memory

import (
	"time"

	"expensetracker/internal/core"
)

// DemoUserID owns the sample expenses.
const DemoUserID int64 = 1

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func SeedCategories() []core.Category {
	return []core.Category{
		{CategoryID: 1, Name: "Food & Dining", ApplicableTo: core.ApplicableBoth},
		{CategoryID: 2, Name: "Transportation", ApplicableTo: core.ApplicableBoth},
		{CategoryID: 3, Name: "Shopping", ApplicableTo: core.ApplicableBoth},
		{CategoryID: 4, Name: "Entertainment", ApplicableTo: core.ApplicablePersonal},
		{CategoryID: 5, Name: "Utilities", ApplicableTo: core.ApplicableBoth},
		{CategoryID: 6, Name: "Healthcare", ApplicableTo: core.ApplicablePersonal},
		{CategoryID: 7, Name: "Travel", ApplicableTo: core.ApplicableBoth},
		{CategoryID: 8, Name: "Office Supplies", ApplicableTo: core.ApplicableOrganizational},
	}
}

func demoUser() core.User {
	return core.User{
		UserID:    DemoUserID,
		Username:  "demo",
		Email:     "demo@example.com",
		CreatedAt: ts("2026-01-01T00:00:00Z"),
	}
}

// SeedExpenses returns the twelve sample expenses of the demo user.
func SeedExpenses() []core.Expense {
	e := func(id int64, date, amount string, t core.ExpenseType, cat int64, catName, desc, created string) core.Expense {
		d, err := core.ParseDate(date)
		if err != nil {
			panic(err)
		}
		return core.Expense{
			ExpenseID:    id,
			Amount:       core.MustMoney(amount),
			ExpenseDate:  d,
			Description:  desc,
			ExpenseType:  t,
			CreatedAt:    ts(created),
			UserID:       DemoUserID,
			Username:     "demo",
			CategoryID:   cat,
			CategoryName: catName,
		}
	}
	return []core.Expense{
		e(1, "2026-02-01", "45.50", core.Personal, 1, "Food & Dining", "Lunch at restaurant", "2026-02-01T12:00:00Z"),
		e(2, "2026-02-02", "60.00", core.Personal, 2, "Transportation", "Gas for car", "2026-02-02T08:30:00Z"),
		e(3, "2026-02-03", "85.00", core.Organizational, 8, "Office Supplies", "Printer paper and ink", "2026-02-03T14:15:00Z"),
		e(4, "2026-02-04", "1200.00", core.Organizational, 3, "Shopping", "New laptop", "2026-02-04T10:00:00Z"),
		e(5, "2026-02-05", "30.00", core.Personal, 4, "Entertainment", "Movie tickets", "2026-02-05T19:00:00Z"),
		e(6, "2026-02-05", "150.00", core.Organizational, 1, "Food & Dining", "Team lunch meeting", "2026-02-05T13:00:00Z"),
		e(7, "2026-02-01", "75.00", core.Personal, 5, "Utilities", "Internet bill", "2026-02-01T09:00:00Z"),
		e(8, "2026-01-28", "450.00", core.Organizational, 7, "Travel", "Business flight", "2026-01-28T06:00:00Z"),
		e(9, "2026-01-30", "120.00", core.Personal, 6, "Healthcare", "Dental checkup", "2026-01-30T15:00:00Z"),
		e(10, "2026-01-28", "35.00", core.Organizational, 2, "Transportation", "Taxi to airport", "2026-01-28T05:00:00Z"),
		e(11, "2026-02-06", "95.50", core.Personal, 1, "Food & Dining", "Grocery shopping", "2026-02-06T11:00:00Z"),
		e(12, "2026-02-04", "180.00", core.Personal, 3, "Shopping", "Clothing", "2026-02-04T16:00:00Z"),
	}
}
