// Package store defines the unified record store contract and the
// dispatcher that routes each call to the local or remote backend.
package store

import (
	"context"

	"billease/internal/core"
)

// Mode names the backend selected for the whole process lifetime.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

// String implements fmt.Stringer
func (m Mode) String() string {
	return string(m)
}

// Store is the single read/write contract for expenses and bills.
//
// An empty owner means the unscoped local demo mode. Implementations never
// cache snapshots: every Snapshot call reflects the current persisted state.
type Store interface {
	// Snapshot returns every expense and bill visible to owner, newest first.
	// Having no data yet is not an error.
	Snapshot(ctx context.Context, owner string) (core.Snapshot, error)

	// AddExpense persists a new expense.
	AddExpense(ctx context.Context, owner string, e core.Expense) error

	// AddBill persists a new bill with status upcoming.
	AddBill(ctx context.Context, owner string, b core.Bill) error

	// MarkBillPaid moves a bill from upcoming to paid.
	MarkBillPaid(ctx context.Context, owner, id string) error
}
