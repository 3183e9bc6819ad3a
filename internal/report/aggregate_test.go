package report

import (
	"testing"

	"billease/internal/core"
)

func exp(cat core.Category, cents int64) core.Expense {
	return core.Expense{Category: cat, Amount: core.Money{Cents: cents}}
}

func TestTotalsOnEmptyInput(t *testing.T) {
	if got := MonthTotal(nil); got.Cents != 0 {
		t.Fatalf("MonthTotal(nil) = %v, want 0", got)
	}
	if got := UpcomingBillsTotal(nil); got.Cents != 0 {
		t.Fatalf("UpcomingBillsTotal(nil) = %v, want 0", got)
	}
	if got := CategoryBreakdown(nil); len(got) != 0 {
		t.Fatalf("CategoryBreakdown(nil) = %v, want empty", got)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	in := []core.Expense{
		exp(core.Food, 10000),
		exp(core.Food, 5000),
		exp(core.Transport, 2000),
	}
	got := CategoryBreakdown(in)
	want := map[core.Category]int64{core.Food: 15000, core.Transport: 2000}
	if len(got) != len(want) {
		t.Fatalf("unexpected keys: %v", got)
	}
	for cat, cents := range want {
		if got[cat].Cents != cents {
			t.Errorf("%s = %d, want %d", cat, got[cat].Cents, cents)
		}
	}
	if _, ok := got[core.Shopping]; ok {
		t.Error("categories absent from the data must not appear")
	}

	sorted := SortedBreakdown(got)
	if len(sorted) != 2 || sorted[0].Category != core.Food || sorted[1].Category != core.Transport {
		t.Fatalf("unexpected order: %+v", sorted)
	}
}

func TestUpcomingBillsTotal(t *testing.T) {
	bills := []core.Bill{
		{ID: "a", Amount: core.Money{Cents: 50000}, Status: core.StatusUpcoming},
		{ID: "b", Amount: core.Money{Cents: 30000}, Status: core.StatusPaid},
	}
	if got := UpcomingBillsTotal(bills); got.Cents != 50000 {
		t.Fatalf("UpcomingBillsTotal = %d, want 50000", got.Cents)
	}
}

func TestMonthTotalSumsWholeInput(t *testing.T) {
	in := []core.Expense{
		{Amount: core.Money{Cents: 100}, Date: core.NewDate(2025, 1, 5)},
		{Amount: core.Money{Cents: 250}, Date: core.NewDate(2024, 12, 31)},
	}
	if got := MonthTotal(in); got.Cents != 350 {
		t.Fatalf("MonthTotal = %d, want 350", got.Cents)
	}
	if got := MonthTotal(ExpensesInMonth(in, 2025, 1)); got.Cents != 100 {
		t.Fatalf("MonthTotal(January) = %d, want 100", got.Cents)
	}
}

func TestRecent(t *testing.T) {
	in := make([]core.Expense, 8)
	for i := range in {
		in[i] = core.Expense{ID: string(rune('a' + i))}
	}
	got := Recent(in, 6)
	if len(got) != 6 || got[0].ID != "a" || got[5].ID != "f" {
		t.Fatalf("unexpected recent slice: %+v", got)
	}
	if got := Recent(in[:2], 6); len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	if got := Recent(nil, 6); len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
}
