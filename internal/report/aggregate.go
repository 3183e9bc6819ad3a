// Package report derives dashboard and report figures from a snapshot.
//
// Every function here is pure: no I/O, no shared state, and the same input
// always yields the same output.
package report

import (
	"sort"

	"billease/internal/core"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category core.Category `json:"category"`
	Amount   core.Money    `json:"amount"`
}

// MonthTotal sums every expense it is given. It does not look at dates:
// callers that want a calendar month pass ExpensesInMonth first.
func MonthTotal(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// UpcomingBillsTotal sums the bills that are still upcoming.
func UpcomingBillsTotal(bills []core.Bill) core.Money {
	var total core.Money
	for _, b := range bills {
		if b.Status == core.StatusUpcoming {
			total = total.Add(b.Amount)
		}
	}
	return total
}

// CategoryBreakdown groups expenses by category. Only categories present in
// the input appear as keys.
func CategoryBreakdown(expenses []core.Expense) map[core.Category]core.Money {
	out := make(map[core.Category]core.Money)
	for _, e := range expenses {
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	return out
}

// SortedBreakdown flattens a breakdown, largest amount first and ties by name.
func SortedBreakdown(breakdown map[core.Category]core.Money) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(breakdown))
	for cat, amt := range breakdown {
		out = append(out, CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ExpensesInMonth keeps the expenses dated in the given year and month,
// preserving order.
func ExpensesInMonth(expenses []core.Expense, year, month int) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Date.Year() == year && int(e.Date.Month()) == month {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns at most n expenses from the head of a newest-first sequence.
func Recent(expenses []core.Expense, n int) []core.Expense {
	if n < 0 {
		n = 0
	}
	if len(expenses) < n {
		n = len(expenses)
	}
	out := make([]core.Expense, n)
	copy(out, expenses[:n])
	return out
}
