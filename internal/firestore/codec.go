package firestore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gfs "google.golang.org/api/firestore/v1"

	"billease/internal/core"
)

const (
	fieldID          = "id"
	fieldOwner       = "owner"
	fieldAmount      = "amount"
	fieldCategory    = "category"
	fieldDescription = "description"
	fieldDate        = "date"
	fieldName        = "name"
	fieldDueDate     = "dueDate"
	fieldRecurring   = "recurring"
	fieldStatus      = "status"
	fieldCreatedAt   = "createdAt"
)

// fieldValue is the REST JSON form of a Firestore value restricted to the
// kinds this package writes. Amounts are stored as decimal strings so that
// zero survives the client's omitempty encoding and no float rounding occurs.
type fieldValue struct {
	StringValue    string `json:"stringValue,omitempty"`
	TimestampValue string `json:"timestampValue,omitempty"`
}

func stringValue(s string) fieldValue {
	return fieldValue{StringValue: s}
}

func expenseFields(owner string, e core.Expense) map[string]fieldValue {
	return map[string]fieldValue{
		fieldID:          stringValue(e.ID),
		fieldOwner:       stringValue(owner),
		fieldAmount:      stringValue(e.Amount.String()),
		fieldCategory:    stringValue(string(e.Category)),
		fieldDescription: stringValue(e.Description),
		fieldDate:        stringValue(e.Date.String()),
	}
}

func billFields(owner string, b core.Bill) map[string]fieldValue {
	return map[string]fieldValue{
		fieldID:        stringValue(b.ID),
		fieldOwner:     stringValue(owner),
		fieldName:      stringValue(b.Name),
		fieldAmount:    stringValue(b.Amount.String()),
		fieldDueDate:   stringValue(b.DueDate.String()),
		fieldRecurring: stringValue(string(b.Recurrence)),
		fieldStatus:    stringValue(string(b.Status)),
	}
}

// toDocument converts through the REST JSON form, which is the wire format
// the generated client speaks anyway.
func toDocument(name string, fields map[string]fieldValue) (*gfs.Document, error) {
	raw, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc gfs.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	doc.Name = name
	return &doc, nil
}

func fromDocument(doc *gfs.Document) (map[string]fieldValue, error) {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, err
	}
	fields := map[string]fieldValue{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func documentID(doc *gfs.Document) string {
	return doc.Name[strings.LastIndex(doc.Name, "/")+1:]
}

func decodeExpense(doc *gfs.Document) (core.Expense, error) {
	f, err := fromDocument(doc)
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseDecimalToCents(f[fieldAmount].StringValue)
	if err != nil {
		return core.Expense{}, fmt.Errorf("amount: %w", err)
	}
	date, err := core.ParseDate(f[fieldDate].StringValue)
	if err != nil {
		return core.Expense{}, fmt.Errorf("date: %w", err)
	}
	return core.Expense{
		ID:          documentID(doc),
		Amount:      core.Money{Cents: amount},
		Category:    core.Category(f[fieldCategory].StringValue),
		Description: f[fieldDescription].StringValue,
		Date:        date,
		Owner:       f[fieldOwner].StringValue,
		CreatedAt:   parseTimestamp(f[fieldCreatedAt].TimestampValue),
	}, nil
}

func decodeBill(doc *gfs.Document) (core.Bill, error) {
	f, err := fromDocument(doc)
	if err != nil {
		return core.Bill{}, err
	}
	amount, err := core.ParseDecimalToCents(f[fieldAmount].StringValue)
	if err != nil {
		return core.Bill{}, fmt.Errorf("amount: %w", err)
	}
	due, err := core.ParseDate(f[fieldDueDate].StringValue)
	if err != nil {
		return core.Bill{}, fmt.Errorf("due date: %w", err)
	}
	return core.Bill{
		ID:         documentID(doc),
		Name:       f[fieldName].StringValue,
		Amount:     core.Money{Cents: amount},
		DueDate:    due,
		Recurrence: core.Recurrence(f[fieldRecurring].StringValue),
		Status:     core.BillStatus(f[fieldStatus].StringValue),
		Owner:      f[fieldOwner].StringValue,
		CreatedAt:  parseTimestamp(f[fieldCreatedAt].TimestampValue),
	}.WithDefaults(), nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
