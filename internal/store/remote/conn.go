// Package remote implements the record store over a document database.
//
// Drivers (Firestore, MongoDB) implement Documents; Conn owns the single
// driver instance for the process and dials it on first use.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"billease/internal/core"
	"billease/internal/log"
)

// Documents is the driver contract for the "expenses" and "bills" collections.
// Every document carries the owner and a server-assigned creation time.
type Documents interface {
	// InsertExpense creates a document and returns the id the backend assigned.
	InsertExpense(ctx context.Context, owner string, e core.Expense) (string, error)
	InsertBill(ctx context.Context, owner string, b core.Bill) (string, error)

	// ListExpenses and ListBills return the owner's records, newest first.
	ListExpenses(ctx context.Context, owner string) ([]core.Expense, error)
	ListBills(ctx context.Context, owner string) ([]core.Bill, error)

	// SetBillStatus updates only the status field. A missing document is
	// reported as core.ErrRecordNotFound.
	SetBillStatus(ctx context.Context, owner, id string, status core.BillStatus) error

	Close(ctx context.Context) error
}

// DialFunc establishes a driver connection.
type DialFunc func(ctx context.Context) (Documents, error)

// Conn is the explicit remote client handle. It is created once at startup
// and passed to the Store; the first successful dial is kept and later calls
// reuse it. A failed dial is not cached, so the next operation dials again.
type Conn struct {
	name   string
	dial   DialFunc
	logger *slog.Logger

	mu   sync.Mutex
	docs Documents
}

func NewConn(name string, dial DialFunc, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{name: name, dial: dial, logger: logger}
}

// Get returns the connected driver, dialing it if needed. Dial failures are
// reported as core.ErrBackendUnavailable.
func (c *Conn) Get(ctx context.Context) (Documents, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.docs != nil {
		return c.docs, nil
	}
	docs, err := c.dial(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Remote backend connection failed", "driver", c.name, log.FieldError, err)
		return nil, fmt.Errorf("%w: %s: %v", core.ErrBackendUnavailable, c.name, err)
	}
	c.docs = docs
	c.logger.InfoContext(ctx, "Remote backend connected", "driver", c.name)
	return docs, nil
}

// Close releases the driver if it was ever connected.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.docs == nil {
		return nil
	}
	err := c.docs.Close(ctx)
	c.docs = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", c.name, err)
	}
	return nil
}
