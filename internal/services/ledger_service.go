// Package services holds the ledger facade that collaborators (the HTTP
// API) call instead of talking to the record store directly.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"billease/internal/amqp"
	"billease/internal/core"
	"billease/internal/log"
	"billease/internal/metrics"
	"billease/internal/store"
)

// RecentLimit is the number of expenses shown on the dashboard.
const RecentLimit = 6

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, event *amqp.RecordEvent) error
}

type Options struct {
	Publisher EventPublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	// Timeout bounds each store call; zero means no limit.
	Timeout time.Duration
	// NewID generates ids for records submitted without one.
	NewID func() string
}

// LedgerService assigns ids, delegates to the record store, records
// metrics and announces committed writes.
type LedgerService struct {
	store     store.Store
	mode      store.Mode
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	timeout   time.Duration
	newID     func() string
}

func NewLedgerService(st store.Store, mode store.Mode, opts Options) *LedgerService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &LedgerService{
		store:     st,
		mode:      mode,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		timeout:   opts.Timeout,
		newID:     opts.NewID,
	}
}

// Mode returns the backend mode selected at startup.
func (s *LedgerService) Mode() store.Mode {
	return s.mode
}

func (s *LedgerService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *LedgerService) observe(op, owner string, start time.Time, err error) {
	s.metrics.ObserveStoreOp(op, store.EffectiveMode(s.mode, owner).String(), start, err)
}

func (s *LedgerService) Snapshot(ctx context.Context, owner string) (snap core.Snapshot, err error) {
	start := time.Now()
	defer func() { s.observe("snapshot", owner, start, err) }()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	snap, err = s.store.Snapshot(ctx, owner)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// AddExpense stores e, generating an id when e.ID is empty, and returns
// the record as submitted.
func (s *LedgerService) AddExpense(ctx context.Context, owner string, e core.Expense) (_ core.Expense, err error) {
	start := time.Now()
	defer func() { s.observe("add_expense", owner, start, err) }()

	if strings.TrimSpace(e.ID) == "" {
		e.ID = s.newID()
	}
	e.Owner = owner

	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.AddExpense(storeCtx, owner, e); err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense recorded",
		log.FieldRecordID, e.ID,
		log.FieldOwner, owner,
		log.FieldCategory, e.Category,
		log.FieldAmountCents, e.Amount.Cents)
	s.publish(ctx, amqp.NewExpenseCreated(e, owner, s.effectiveMode(owner)))
	return e, nil
}

// AddBill stores b with status upcoming, generating an id when needed.
func (s *LedgerService) AddBill(ctx context.Context, owner string, b core.Bill) (_ core.Bill, err error) {
	start := time.Now()
	defer func() { s.observe("add_bill", owner, start, err) }()

	if strings.TrimSpace(b.ID) == "" {
		b.ID = s.newID()
	}
	b = b.WithDefaults()
	b.Owner = owner

	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.AddBill(storeCtx, owner, b); err != nil {
		return core.Bill{}, fmt.Errorf("add bill: %w", err)
	}

	s.logger.InfoContext(ctx, "Bill recorded",
		log.FieldRecordID, b.ID,
		log.FieldOwner, owner,
		"recurring", b.Recurrence,
		log.FieldAmountCents, b.Amount.Cents)
	s.publish(ctx, amqp.NewBillCreated(b, owner, s.effectiveMode(owner)))
	return b, nil
}

func (s *LedgerService) MarkBillPaid(ctx context.Context, owner, id string) (err error) {
	start := time.Now()
	defer func() { s.observe("mark_bill_paid", owner, start, err) }()

	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.MarkBillPaid(storeCtx, owner, id); err != nil {
		return fmt.Errorf("mark bill %s paid: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Bill marked paid", log.FieldRecordID, id, log.FieldOwner, owner)
	s.publish(ctx, amqp.NewBillPaid(id, owner, s.effectiveMode(owner)))
	return nil
}

func (s *LedgerService) effectiveMode(owner string) string {
	return store.EffectiveMode(s.mode, owner).String()
}

// publish never fails the write it reports on.
func (s *LedgerService) publish(ctx context.Context, event *amqp.RecordEvent) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishRecordEvent(ctx, event)
	s.metrics.EventPublished(string(event.Type), err)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish record event",
			log.FieldOperation, log.OpPublish,
			log.FieldEvent, event.Type,
			log.FieldRecordID, event.ID,
			log.FieldError, err)
	}
}
