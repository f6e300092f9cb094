package export

import (
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/summary"
)

// Report is one dashboard snapshot laid out for a sheet.
type Report struct {
	GeneratedAt time.Time
	Username    string
	Filter      core.ExpenseFilter
	Expenses    []core.Expense
	Totals      summary.Totals
	ByCategory  []summary.CategoryAmount
}

// FromDashboard copies the parts of a loaded dashboard that are exported.
func FromDashboard(d services.Dashboard, username string, at time.Time) Report {
	groups := make([]summary.CategoryAmount, len(d.Chart))
	for i, s := range d.Chart {
		groups[i] = s.CategoryAmount
	}
	return Report{
		GeneratedAt: at,
		Username:    username,
		Filter:      d.Filter,
		Expenses:    d.Expenses,
		Totals:      d.Totals,
		ByCategory:  groups,
	}
}

var expenseHeader = []any{"ID", "Date", "Description", "Category", "Type", "Amount"}

var journalHeader = []any{"Occurred At", "Event", "Expense ID", "User ID", "Date", "Description", "Category", "Amount"}

func amount(m core.Money) string {
	return m.StringFixed(2)
}

// ExpenseRow is one expense in sheet column order.
func ExpenseRow(e core.Expense) []any {
	return []any{
		e.ExpenseID,
		e.ExpenseDate.String(),
		e.Description,
		e.CategoryName,
		string(e.ExpenseType),
		amount(e.Amount),
	}
}

// Rows lays the report out top to bottom: title, filter, totals, the
// category breakdown and finally one row per expense.
func (r Report) Rows() [][]any {
	rows := [][]any{
		{"Expense report", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{"User", r.Username},
		{"Filter", DescribeFilter(r.Filter)},
		{},
		{"Summary"},
		{"Total", amount(r.Totals.Total)},
		{"Personal", amount(r.Totals.PersonalTotal)},
		{"Organizational", amount(r.Totals.OrganizationalTotal)},
		{},
		{"By category"},
	}
	for _, g := range r.ByCategory {
		rows = append(rows, []any{g.Name, amount(g.Amount)})
	}
	rows = append(rows, []any{}, expenseHeader)
	for _, e := range r.Expenses {
		rows = append(rows, ExpenseRow(e))
	}
	return rows
}

// DescribeFilter renders the active constraints, or "all expenses".
func DescribeFilter(f core.ExpenseFilter) string {
	if f.IsEmpty() {
		return "all expenses"
	}
	var parts []string
	if f.Type != "" {
		parts = append(parts, "type="+string(f.Type))
	}
	if f.CategoryID != 0 {
		parts = append(parts, "category="+strconv.FormatInt(f.CategoryID, 10))
	}
	if !f.StartDate.IsZero() {
		parts = append(parts, "from="+f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		parts = append(parts, "to="+f.EndDate.String())
	}
	return strings.Join(parts, " ")
}

// JournalRow records one change event. Deletions leave the expense
// columns empty.
func JournalRow(ev *amqp.ExpenseEvent) []any {
	row := []any{
		ev.OccurredAt.UTC().Format(time.RFC3339),
		string(ev.Type),
		ev.ExpenseID,
		ev.UserID,
		"", "", "", "",
	}
	if e := ev.Expense; e != nil {
		row[4] = e.ExpenseDate.String()
		row[5] = e.Description
		row[6] = e.CategoryName
		row[7] = amount(e.Amount)
	}
	return row
}
