package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/ports/memory"
)

func exp(amount string, t core.ExpenseType, category string) core.Expense {
	return core.Expense{Amount: core.MustMoney(amount), ExpenseType: t, CategoryName: category}
}

func TestSummarizeExample(t *testing.T) {
	got := Summarize([]core.Expense{
		exp("45.50", core.Personal, "Food & Dining"),
		exp("85.00", core.Organizational, "Office Supplies"),
	})
	assert.Equal(t, "130.50", got.Total.StringFixed(2))
	assert.Equal(t, "45.50", got.PersonalTotal.StringFixed(2))
	assert.Equal(t, "85.00", got.OrganizationalTotal.StringFixed(2))
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil)
	assert.True(t, got.Total.IsZero())
	assert.True(t, got.PersonalTotal.IsZero())
	assert.True(t, got.OrganizationalTotal.IsZero())
}

func TestSummarizeTotalIsSumOfTypes(t *testing.T) {
	sample := memory.SeedExpenses()
	for n := 0; n <= len(sample); n++ {
		got := Summarize(sample[:n])
		assert.True(t, got.Total.Equal(got.PersonalTotal.Add(got.OrganizationalTotal)), "prefix %d", n)
	}
	all := Summarize(sample)
	assert.Equal(t, "2526.00", all.Total.StringFixed(2))
	assert.Equal(t, "606.00", all.PersonalTotal.StringFixed(2))
	assert.Equal(t, "1920.00", all.OrganizationalTotal.StringFixed(2))
}

func TestGroupByCategoryMergesSameName(t *testing.T) {
	got := GroupByCategory([]core.Expense{
		exp("10", core.Personal, "Travel"),
		exp("15.25", core.Organizational, "Travel"),
	})
	require.Len(t, got, 1)
	assert.Equal(t, "Travel", got[0].Name)
	assert.Equal(t, "25.25", got[0].Amount.StringFixed(2))
}

func TestGroupByCategoryOrderAndFallback(t *testing.T) {
	got := GroupByCategory([]core.Expense{
		exp("5", core.Personal, ""),
		exp("30", core.Personal, "Shopping"),
		exp("20", core.Personal, "Food & Dining"),
		exp("20", core.Personal, "Entertainment"),
	})
	require.Len(t, got, 4)
	names := []string{got[0].Name, got[1].Name, got[2].Name, got[3].Name}
	assert.Equal(t, []string{"Shopping", "Entertainment", "Food & Dining", "Uncategorized"}, names)
}

func TestChartColours(t *testing.T) {
	var list []core.Expense
	for i := 0; i < 12; i++ {
		list = append(list, exp(string(rune('1'+i%9)), core.Personal, string(rune('A'+i))))
	}
	slices := Chart(list)
	require.Len(t, slices, 12)
	assert.Equal(t, Palette[0], slices[0].Color)
	assert.Equal(t, "rgba(54, 162, 235, 1)", slices[0].BorderColor)
	assert.Equal(t, slices[0].Color, slices[10].Color)
	assert.Equal(t, slices[1].Color, slices[11].Color)
}
