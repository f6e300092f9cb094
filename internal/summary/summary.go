// Package summary computes dashboard totals and the per-category chart data.
package summary

import (
	"sort"
	"strings"

	"expensetracker/internal/core"
)

// UncategorizedName labels expenses that carry no category name.
const UncategorizedName = "Uncategorized"

type (
	Totals struct {
		Total               core.Money `json:"total"`
		PersonalTotal       core.Money `json:"personalTotal"`
		OrganizationalTotal core.Money `json:"organizationalTotal"`
	}

	CategoryAmount struct {
		Name   string     `json:"name"`
		Amount core.Money `json:"amount"`
	}

	// Slice is one pie-chart wedge.
	Slice struct {
		CategoryAmount
		Color       string `json:"backgroundColor"`
		BorderColor string `json:"borderColor"`
	}
)

// Summarize sums all amounts and the amounts per expense type.
func Summarize(expenses []core.Expense) Totals {
	var t Totals
	for _, e := range expenses {
		t.Total = t.Total.Add(e.Amount)
		switch e.ExpenseType {
		case core.Personal:
			t.PersonalTotal = t.PersonalTotal.Add(e.Amount)
		case core.Organizational:
			t.OrganizationalTotal = t.OrganizationalTotal.Add(e.Amount)
		}
	}
	return t
}

// GroupByCategory sums amounts per category name, largest first. Equal
// amounts are ordered by name.
func GroupByCategory(expenses []core.Expense) []CategoryAmount {
	idx := map[string]int{}
	var out []CategoryAmount
	for _, e := range expenses {
		name := strings.TrimSpace(e.CategoryName)
		if name == "" {
			name = UncategorizedName
		}
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, CategoryAmount{Name: name})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount.Decimal); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
