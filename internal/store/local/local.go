// Package local implements the record store over a single persisted blob.
//
// The whole state lives under one key as {"expenses": [...], "bills": [...]}
// and every write replaces it. Ownership is not partitioned: Snapshot returns
// all records whatever owner is requested, which is fine for a single-user
// demo deployment and is not tenant isolation.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"billease/internal/core"
	"billease/internal/log"
	"billease/internal/store"
)

// DefaultKey is the blob key used when none is configured.
const DefaultKey = "billease:demo:v1"

// BackupSuffix is appended to the key to hold the last unreadable blob.
const BackupSuffix = ":unreadable"

type Store struct {
	mu     sync.Mutex
	blob   Blob
	key    string
	logger *slog.Logger
	now    func() time.Time
}

// Ensure interface conformance
var _ store.Store = (*Store)(nil)

func New(blob Blob, key string, logger *slog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{blob: blob, key: key, logger: logger, now: time.Now}
}

// Snapshot ignores owner; see the package documentation.
func (s *Store) Snapshot(ctx context.Context, _ string) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

func (s *Store) AddExpense(ctx context.Context, owner string, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(ctx)
	if err != nil {
		return err
	}
	for _, existing := range snap.Expenses {
		if existing.ID == e.ID {
			return fmt.Errorf("expense %q: %w", e.ID, core.ErrDuplicateID)
		}
	}
	e.Owner = owner
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	snap.Expenses = append([]core.Expense{e}, snap.Expenses...)
	if err := s.write(ctx, snap); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Expense saved to local store",
		log.FieldRecordID, e.ID,
		log.FieldCategory, e.Category,
		log.FieldAmountCents, e.Amount.Cents)
	return nil
}

func (s *Store) AddBill(ctx context.Context, owner string, b core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(ctx)
	if err != nil {
		return err
	}
	for _, existing := range snap.Bills {
		if existing.ID == b.ID {
			return fmt.Errorf("bill %q: %w", b.ID, core.ErrDuplicateID)
		}
	}
	b = b.WithDefaults()
	b.Owner = owner
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}
	snap.Bills = append([]core.Bill{b}, snap.Bills...)
	if err := s.write(ctx, snap); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Bill saved to local store",
		log.FieldRecordID, b.ID,
		"recurrence", b.Recurrence,
		log.FieldAmountCents, b.Amount.Cents)
	return nil
}

// MarkBillPaid is a silent no-op when id is unknown.
func (s *Store) MarkBillPaid(ctx context.Context, _ string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range snap.Bills {
		if snap.Bills[i].ID == id {
			snap.Bills[i].Status = core.StatusPaid
			found = true
			break
		}
	}
	if !found {
		s.logger.DebugContext(ctx, "Mark paid ignored, bill not in local store", log.FieldRecordID, id)
		return nil
	}
	if err := s.write(ctx, snap); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Bill marked paid in local store",
		log.FieldRecordID, id,
		log.FieldBillStatus, core.StatusPaid)
	return nil
}

// read loads the blob. A missing or unparsable blob becomes the empty
// snapshot; only I/O failures of the persister are returned.
func (s *Store) read(ctx context.Context) (core.Snapshot, error) {
	raw, err := s.blob.Load(ctx, s.key)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load local state: %w", err)
	}
	if len(raw) == 0 {
		return core.EmptySnapshot(), nil
	}

	var snap core.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.logger.WarnContext(ctx, "Discarding unreadable local state",
			"key", s.key,
			"backup_key", s.backupKey(),
			log.FieldError, fmt.Errorf("%w: %v", core.ErrMalformedPersistedState, err))
		s.backup(ctx, raw)
		return core.EmptySnapshot(), nil
	}
	if snap.Expenses == nil {
		snap.Expenses = []core.Expense{}
	}
	if snap.Bills == nil {
		snap.Bills = []core.Bill{}
	}
	return snap, nil
}

func (s *Store) backupKey() string {
	return s.key + BackupSuffix
}

// backup copies an unreadable blob aside before a later write replaces it.
// A failed copy is logged; the read still degrades to the empty snapshot.
func (s *Store) backup(ctx context.Context, raw []byte) {
	existing, err := s.blob.Load(ctx, s.backupKey())
	if err == nil && bytes.Equal(existing, raw) {
		return
	}
	if err := s.blob.Save(ctx, s.backupKey(), raw); err != nil {
		s.logger.ErrorContext(ctx, "Failed to back up unreadable local state",
			"key", s.key,
			log.FieldError, err)
	}
}

func (s *Store) write(ctx context.Context, snap core.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode local state: %w", err)
	}
	if err := s.blob.Save(ctx, s.key, raw); err != nil {
		return fmt.Errorf("save local state: %w", err)
	}
	return nil
}
