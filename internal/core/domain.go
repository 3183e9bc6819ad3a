package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Food          Category = "food"
	Transport     Category = "transport"
	Shopping      Category = "shopping"
	Utilities     Category = "utilities"
	Entertainment Category = "entertainment"
	Healthcare    Category = "healthcare"
)

const (
	NoRecurrence Recurrence = "none"
	Monthly      Recurrence = "monthly"
	Yearly       Recurrence = "yearly"
)

const (
	StatusUpcoming BillStatus = "upcoming"
	StatusPaid     BillStatus = "paid"
)

type (
	Category   string
	Recurrence string
	BillStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          string    `json:"id"`
		Amount      Money     `json:"amount"`
		Category    Category  `json:"category"`
		Description string    `json:"description"`
		Date        Date      `json:"date"`
		Owner       string    `json:"owner,omitempty"`
		CreatedAt   time.Time `json:"createdAt,omitzero"`
	}

	Bill struct {
		ID         string     `json:"id"`
		Name       string     `json:"name"`
		Amount     Money      `json:"amount"`
		DueDate    Date       `json:"dueDate"`
		Recurrence Recurrence `json:"recurring"`
		Status     BillStatus `json:"status"`
		Owner      string     `json:"owner,omitempty"`
		CreatedAt  time.Time  `json:"createdAt,omitzero"`
	}

	// Snapshot is the full current state for an owner, newest first.
	Snapshot struct {
		Expenses []Expense `json:"expenses"`
		Bills    []Bill    `json:"bills"`
	}
)

// Storage error kinds shared by every backend.
var (
	ErrBackendUnavailable      = errors.New("backend unavailable")
	ErrRecordNotFound          = errors.New("record not found")
	ErrMalformedPersistedState = errors.New("malformed persisted state")
	ErrInvalidInput            = errors.New("invalid input")
)

var (
	ErrInvalidDate        = fmt.Errorf("%w: invalid date", ErrInvalidInput)
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrInvalidInput)
	ErrInvalidCategory    = fmt.Errorf("%w: unknown category", ErrInvalidInput)
	ErrInvalidRecurrence  = fmt.Errorf("%w: unknown recurrence", ErrInvalidInput)
	ErrInvalidStatus      = fmt.Errorf("%w: invalid bill status", ErrInvalidInput)
	ErrEmptyID            = fmt.Errorf("%w: empty id", ErrInvalidInput)
	ErrEmptyDescription   = fmt.Errorf("%w: empty description", ErrInvalidInput)
	ErrEmptyName          = fmt.Errorf("%w: empty bill name", ErrInvalidInput)
	ErrDuplicateID        = fmt.Errorf("%w: duplicate id", ErrInvalidInput)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidInput)
)

// EmptySnapshot returns a snapshot with non-nil empty sequences.
func EmptySnapshot() Snapshot {
	return Snapshot{Expenses: []Expense{}, Bills: []Bill{}}
}

// Categories returns the enumerated category set in form order.
func Categories() []Category {
	return []Category{Food, Transport, Shopping, Utilities, Entertainment, Healthcare}
}

func (c Category) IsValid() bool {
	switch c {
	case Food, Transport, Shopping, Utilities, Entertainment, Healthcare:
		return true
	default:
		return false
	}
}

func (r Recurrence) IsValid() bool {
	switch r {
	case NoRecurrence, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return e.Date.Validate()
}

// Validate checks a bill as submitted for creation. A bill can never be
// created already paid.
func (b Bill) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.DueDate.Validate(); err != nil {
		return err
	}
	if !b.Recurrence.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrence, b.Recurrence)
	}
	if b.Status != "" && b.Status != StatusUpcoming {
		return fmt.Errorf("%w: %q at creation", ErrInvalidStatus, b.Status)
	}
	return nil
}

// WithDefaults fills the creation defaults of a bill.
func (b Bill) WithDefaults() Bill {
	if b.Status == "" {
		b.Status = StatusUpcoming
	}
	if b.Recurrence == "" {
		b.Recurrence = NoRecurrence
	}
	return b
}
