package summary

import (
	"strings"

	"expensetracker/internal/core"
)

// Palette holds the wedge fill colours, assigned by position and reused
// when there are more categories than colours.
var Palette = []string{
	"rgba(54, 162, 235, 0.7)",
	"rgba(255, 99, 132, 0.7)",
	"rgba(75, 192, 192, 0.7)",
	"rgba(255, 206, 86, 0.7)",
	"rgba(153, 102, 255, 0.7)",
	"rgba(255, 159, 64, 0.7)",
	"rgba(199, 199, 199, 0.7)",
	"rgba(83, 102, 255, 0.7)",
	"rgba(255, 99, 255, 0.7)",
	"rgba(99, 255, 132, 0.7)",
}

// Color returns the fill colour for the i-th wedge.
func Color(i int) string {
	return Palette[i%len(Palette)]
}

// BorderColor is Color at full opacity.
func BorderColor(i int) string {
	return strings.Replace(Color(i), "0.7)", "1)", 1)
}

// Chart groups expenses by category and colours the result.
func Chart(expenses []core.Expense) []Slice {
	groups := GroupByCategory(expenses)
	out := make([]Slice, len(groups))
	for i, g := range groups {
		out[i] = Slice{CategoryAmount: g, Color: Color(i), BorderColor: BorderColor(i)}
	}
	return out
}
