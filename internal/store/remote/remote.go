package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"billease/internal/core"
	"billease/internal/log"
	"billease/internal/store"
)

type Store struct {
	conn   *Conn
	logger *slog.Logger
}

// Ensure interface conformance
var _ store.Store = (*Store)(nil)

func New(conn *Conn, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger}
}

// Snapshot runs the expenses and bills queries concurrently and assembles
// one snapshot. Either query failing fails the whole read.
func (s *Store) Snapshot(ctx context.Context, owner string) (core.Snapshot, error) {
	if err := requireOwner(owner); err != nil {
		return core.Snapshot{}, err
	}
	docs, err := s.conn.Get(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}

	var expenses []core.Expense
	var bills []core.Bill
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = docs.ListExpenses(gctx, owner)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bills, err = docs.ListBills(gctx, owner)
		if err != nil {
			return fmt.Errorf("list bills: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}

	snap := core.EmptySnapshot()
	if expenses != nil {
		snap.Expenses = expenses
	}
	if bills != nil {
		snap.Bills = bills
	}
	return snap, nil
}

func (s *Store) AddExpense(ctx context.Context, owner string, e core.Expense) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	docs, err := s.conn.Get(ctx)
	if err != nil {
		return err
	}
	e.Owner = owner
	ref, err := docs.InsertExpense(ctx, owner, e)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense saved to remote store",
		log.FieldRecordID, e.ID,
		"doc_id", ref,
		log.FieldOwner, owner,
		log.FieldAmountCents, e.Amount.Cents)
	return nil
}

func (s *Store) AddBill(ctx context.Context, owner string, b core.Bill) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	docs, err := s.conn.Get(ctx)
	if err != nil {
		return err
	}
	b = b.WithDefaults()
	b.Owner = owner
	ref, err := docs.InsertBill(ctx, owner, b)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}

	s.logger.InfoContext(ctx, "Bill saved to remote store",
		log.FieldRecordID, b.ID,
		"doc_id", ref,
		log.FieldOwner, owner,
		log.FieldAmountCents, b.Amount.Cents)
	return nil
}

// MarkBillPaid fails with core.ErrRecordNotFound when the document is missing.
func (s *Store) MarkBillPaid(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	docs, err := s.conn.Get(ctx)
	if err != nil {
		return err
	}
	if err := docs.SetBillStatus(ctx, owner, id, core.StatusPaid); err != nil {
		return fmt.Errorf("mark bill %q paid: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Bill marked paid in remote store",
		log.FieldRecordID, id,
		log.FieldOwner, owner,
		log.FieldBillStatus, core.StatusPaid)
	return nil
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("%w: remote records require an owner", core.ErrInvalidInput)
	}
	return nil
}
