package store

import (
	"context"
	"fmt"
	"strings"

	"billease/internal/core"
)

// Dispatcher implements Store on top of a local store and, in cloud mode,
// a remote one. Input is validated before any backend is touched.
type Dispatcher struct {
	mode   Mode
	local  Store
	remote Store
}

// Ensure interface conformance
var _ Store = (*Dispatcher)(nil)

// NewDispatcher builds the store handed out to collaborators. remote may be
// nil only in local mode.
func NewDispatcher(mode Mode, local, remote Store) (*Dispatcher, error) {
	if local == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if mode == ModeCloud && remote == nil {
		return nil, fmt.Errorf("cloud mode requires a remote store")
	}
	return &Dispatcher{mode: mode, local: local, remote: remote}, nil
}

// Mode returns the backend mode fixed at construction.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// EffectiveMode is the backend that serves owner under mode. Signed-out
// callers always work against the local demo store.
func EffectiveMode(mode Mode, owner string) Mode {
	if mode == ModeCloud && strings.TrimSpace(owner) != "" {
		return ModeCloud
	}
	return ModeLocal
}

func (d *Dispatcher) route(owner string) Store {
	if EffectiveMode(d.mode, owner) == ModeCloud {
		return d.remote
	}
	return d.local
}

func (d *Dispatcher) Snapshot(ctx context.Context, owner string) (core.Snapshot, error) {
	return d.route(owner).Snapshot(ctx, owner)
}

func (d *Dispatcher) AddExpense(ctx context.Context, owner string, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate expense: %w", err)
	}
	return d.route(owner).AddExpense(ctx, owner, e)
}

func (d *Dispatcher) AddBill(ctx context.Context, owner string, b core.Bill) error {
	b = b.WithDefaults()
	if err := b.Validate(); err != nil {
		return fmt.Errorf("validate bill: %w", err)
	}
	return d.route(owner).AddBill(ctx, owner, b)
}

func (d *Dispatcher) MarkBillPaid(ctx context.Context, owner, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("mark bill paid: %w", core.ErrEmptyID)
	}
	return d.route(owner).MarkBillPaid(ctx, owner, id)
}
