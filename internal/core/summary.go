package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// NoExpensesMessage is returned when a sheet holds no data rows yet.
const NoExpensesMessage = "No expenses recorded yet."

// DefaultRecentLimit caps the recent-expenses section of a summary.
const DefaultRecentLimit = 5

// CategoryTotal is the aggregated spend for one category.
type CategoryTotal struct {
	Name   string
	Amount decimal.Decimal
}

// Summary is a computed view over a user's records.
type Summary struct {
	Total      decimal.Decimal
	ByCategory []CategoryTotal // descending by amount
	Recent     []Record        // most recent first
}

// Summarize aggregates records in sheet order: grand total, per-category
// totals sorted descending, and the last limit records reversed so the most
// recent comes first. Ties between categories keep first-seen order.
func Summarize(records []Record, limit int) Summary {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	total := decimal.Zero
	byName := map[string]decimal.Decimal{}
	var order []string
	for _, r := range records {
		total = total.Add(r.Amount)
		if _, seen := byName[r.Category]; !seen {
			order = append(order, r.Category)
		}
		byName[r.Category] = byName[r.Category].Add(r.Amount)
	}

	cats := make([]CategoryTotal, 0, len(order))
	for _, name := range order {
		cats = append(cats, CategoryTotal{Name: name, Amount: byName[name]})
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].Amount.GreaterThan(cats[j].Amount)
	})

	start := 0
	if len(records) > limit {
		start = len(records) - limit
	}
	recent := make([]Record, 0, len(records)-start)
	for i := len(records) - 1; i >= start; i-- {
		recent = append(recent, records[i])
	}

	return Summary{Total: total, ByCategory: cats, Recent: recent}
}

// RenderSummary formats records as the user-facing report. An empty input
// yields NoExpensesMessage.
func RenderSummary(records []Record, limit int) string {
	if len(records) == 0 {
		return NoExpensesMessage
	}
	s := Summarize(records, limit)

	var b strings.Builder
	b.WriteString("📊 **Expense Summary**\n\n")

	b.WriteString("**Recent Expenses:**\n")
	for _, r := range s.Recent {
		// Individual amounts keep their raw value, no forced decimals.
		fmt.Fprintf(&b, "• %s: %s - ₹%s\n", r.Day(), r.Category, r.Amount.String())
	}

	b.WriteString("\n**By Category:**\n")
	hundred := decimal.NewFromInt(100)
	for _, c := range s.ByCategory {
		// Amounts may sum to zero (a logged 0, or offsetting entries);
		// Div panics on a zero divisor.
		pct := decimal.Zero
		if !s.Total.IsZero() {
			pct = c.Amount.Div(s.Total).Mul(hundred)
		}
		fmt.Fprintf(&b, "• %s: ₹%s (%s%%)\n", c.Name, c.Amount.StringFixed(2), pct.StringFixed(1))
	}

	fmt.Fprintf(&b, "\n**Total Expenses:** ₹%s", s.Total.StringFixed(2))
	return b.String()
}
