package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"billease/internal/core"
)

// EventType names a record change.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	BillCreated    EventType = "bill.created"
	BillPaid       EventType = "bill.paid"
)

// RecordEvent announces a committed write. It carries identifiers and the
// amount only; consumers re-read the snapshot for the full record.
type RecordEvent struct {
	Type        EventType `json:"type"`
	ID          string    `json:"id"`
	Owner       string    `json:"owner,omitempty"`
	Mode        string    `json:"mode"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Category    string    `json:"category,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseCreated(e core.Expense, owner, mode string) *RecordEvent {
	return &RecordEvent{
		Type:        ExpenseCreated,
		ID:          e.ID,
		Owner:       owner,
		Mode:        mode,
		AmountCents: e.Amount.Cents,
		Category:    string(e.Category),
		Timestamp:   time.Now().UTC(),
	}
}

func NewBillCreated(b core.Bill, owner, mode string) *RecordEvent {
	return &RecordEvent{
		Type:        BillCreated,
		ID:          b.ID,
		Owner:       owner,
		Mode:        mode,
		AmountCents: b.Amount.Cents,
		Timestamp:   time.Now().UTC(),
	}
}

func NewBillPaid(id, owner, mode string) *RecordEvent {
	return &RecordEvent{
		Type:      BillPaid,
		ID:        id,
		Owner:     owner,
		Mode:      mode,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON parses an event and rejects unknown types.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case ExpenseCreated, BillCreated, BillPaid:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
