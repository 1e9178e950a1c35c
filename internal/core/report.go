package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const EmptyReportMessage = "📊 No expenses recorded yet.\n\nStart by sending me your daily expenses!"

var hundred = decimal.NewFromInt(100)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// CategoryTotals is built fresh for every report and never stored.
type CategoryTotals struct {
	ByCategory []CategoryAmount // total descending, ties in first-seen order
	Total      decimal.Decimal
	Entries    int
}

// Aggregate groups records by their exact category string.
func Aggregate(records []Record) CategoryTotals {
	index := make(map[string]int)
	var out CategoryTotals
	for _, r := range records {
		amt := decimal.NewFromFloat(r.Amount)
		i, ok := index[r.Category]
		if !ok {
			i = len(out.ByCategory)
			index[r.Category] = i
			out.ByCategory = append(out.ByCategory, CategoryAmount{Name: r.Category})
		}
		out.ByCategory[i].Amount = out.ByCategory[i].Amount.Add(amt)
		out.Total = out.Total.Add(amt)
		out.Entries++
	}
	sort.SliceStable(out.ByCategory, func(a, b int) bool {
		return out.ByCategory[a].Amount.GreaterThan(out.ByCategory[b].Amount)
	})
	return out
}

// Percentage returns amt as a share of the grand total, 0 when the total is 0.
func (t CategoryTotals) Percentage(amt decimal.Decimal) decimal.Decimal {
	if t.Total.IsZero() {
		return decimal.Zero
	}
	return amt.Div(t.Total).Mul(hundred)
}

// BuildReport renders the per-category summary sent back to the user.
func BuildReport(records []Record) string {
	if len(records) == 0 {
		return EmptyReportMessage
	}
	totals := Aggregate(records)

	var b strings.Builder
	b.WriteString("📊 Monthly Expense Report\n\n")
	for _, c := range totals.ByCategory {
		fmt.Fprintf(&b, "%s: $%s (%s%%)\n", c.Name, c.Amount.StringFixed(2), totals.Percentage(c.Amount).StringFixed(1))
	}
	fmt.Fprintf(&b, "\n💰 Total: $%s", totals.Total.StringFixed(2))
	fmt.Fprintf(&b, "\n📈 Entries: %d", totals.Entries)
	return b.String()
}

// FilterPeriod keeps the records dated in the given year and month.
func FilterPeriod(records []Record, year, month int) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		y, m, ok := r.Period()
		if ok && y == year && m == month {
			out = append(out, r)
		}
	}
	return out
}
