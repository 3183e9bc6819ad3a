package report

import (
	"time"

	"billease/internal/core"
)

// BillView is a bill annotated with its computed schedule.
type BillView struct {
	core.Bill
	NextDue core.Date `json:"nextDue"`
	Overdue bool      `json:"overdue"`
}

// NextDueDate returns the first due date on or after now for a bill.
// One-time bills keep their due date. Monthly and yearly bills advance from
// the original due date, clamping to the last day of shorter months so a bill
// due on the 31st falls on Feb 28/29.
func NextDueDate(b core.Bill, now time.Time) core.Date {
	due := b.DueDate
	if due.IsZero() {
		return due
	}
	today := truncateDay(now)
	switch b.Recurrence {
	case core.Monthly:
		for step := 0; ; step++ {
			d := addMonthsClamped(due, step)
			if !d.Before(today) {
				return d
			}
		}
	case core.Yearly:
		for step := 0; ; step++ {
			d := addMonthsClamped(due, 12*step)
			if !d.Before(today) {
				return d
			}
		}
	default:
		return due
	}
}

// IsOverdue reports whether an upcoming one-time bill is past its due date.
// Recurring bills roll forward and are never overdue; paid bills never are.
func IsOverdue(b core.Bill, now time.Time) bool {
	if b.Status != core.StatusUpcoming || b.DueDate.IsZero() {
		return false
	}
	if b.Recurrence == core.Monthly || b.Recurrence == core.Yearly {
		return false
	}
	return b.DueDate.Before(truncateDay(now))
}

// Schedule annotates every bill with its next due date and overdue flag.
func Schedule(bills []core.Bill, now time.Time) []BillView {
	out := make([]BillView, 0, len(bills))
	for _, b := range bills {
		out = append(out, BillView{
			Bill:    b,
			NextDue: NextDueDate(b, now),
			Overdue: IsOverdue(b, now),
		})
	}
	return out
}

func addMonthsClamped(d core.Date, months int) core.Date {
	y, m, day := d.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDayOfMonth := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDayOfMonth {
		day = lastDayOfMonth
	}
	return core.NewDate(target.Year(), int(target.Month()), day)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
