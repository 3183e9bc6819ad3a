package services

import (
	"context"
	"time"

	"billease/internal/core"
	"billease/internal/report"
)

// Dashboard is the landing view of an owner's finances.
type Dashboard struct {
	// MonthTotal sums every expense in the snapshot.
	MonthTotal core.Money `json:"monthTotal"`
	// CurrentMonthTotal sums only expenses dated in the calendar month of now.
	CurrentMonthTotal  core.Money     `json:"currentMonthTotal"`
	UpcomingBillsTotal core.Money     `json:"upcomingBillsTotal"`
	UpcomingBillsCount int            `json:"upcomingBillsCount"`
	Recent             []core.Expense `json:"recent"`
}

// Report is the category view of all expenses.
type Report struct {
	Total     core.Money              `json:"total"`
	Count     int                     `json:"count"`
	Breakdown []report.CategoryAmount `json:"breakdown"`
}

func (s *LedgerService) Dashboard(ctx context.Context, owner string, now time.Time) (Dashboard, error) {
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return Dashboard{}, err
	}

	upcoming := 0
	for _, b := range snap.Bills {
		if b.Status == core.StatusUpcoming {
			upcoming++
		}
	}
	return Dashboard{
		MonthTotal:         report.MonthTotal(snap.Expenses),
		CurrentMonthTotal:  report.MonthTotal(report.ExpensesInMonth(snap.Expenses, now.Year(), int(now.Month()))),
		UpcomingBillsTotal: report.UpcomingBillsTotal(snap.Bills),
		UpcomingBillsCount: upcoming,
		Recent:             report.Recent(snap.Expenses, RecentLimit),
	}, nil
}

func (s *LedgerService) Report(ctx context.Context, owner string) (Report, error) {
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Total:     report.MonthTotal(snap.Expenses),
		Count:     len(snap.Expenses),
		Breakdown: report.SortedBreakdown(report.CategoryBreakdown(snap.Expenses)),
	}, nil
}

// Bills returns the owner's bills with their next due date and overdue flag.
func (s *LedgerService) Bills(ctx context.Context, owner string, now time.Time) ([]report.BillView, error) {
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return report.Schedule(snap.Bills, now), nil
}
