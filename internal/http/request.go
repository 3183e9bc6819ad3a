package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"billease/internal/core"
)

const (
	// OwnerHeader carries the authenticated owner id; absent means the
	// local demo ledger.
	OwnerHeader = "X-Owner-ID"

	maxBodyBytes = 64 << 10
	maxOwnerLen  = 128
)

var errBadRequest = errors.New("bad request")

// Amount is a pointer so an absent or null amount can be told apart from 0.
type expenseRequest struct {
	ID          string        `json:"id"`
	Amount      *core.Money   `json:"amount"`
	Category    core.Category `json:"category"`
	Description string        `json:"description"`
	Date        core.Date     `json:"date"`
}

type billRequest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Amount     *core.Money     `json:"amount"`
	DueDate    core.Date       `json:"dueDate"`
	Recurrence core.Recurrence `json:"recurring"`
	Status     core.BillStatus `json:"status"`
}

func (req expenseRequest) expense(today core.Date) (core.Expense, error) {
	if req.Amount == nil {
		return core.Expense{}, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	}
	date := req.Date
	if date.IsZero() {
		date = today
	}
	return core.Expense{
		ID:          sanitizeInput(req.ID),
		Amount:      *req.Amount,
		Category:    core.Category(strings.ToLower(sanitizeInput(string(req.Category)))),
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}

func (req billRequest) bill() (core.Bill, error) {
	if req.Amount == nil {
		return core.Bill{}, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	}
	return core.Bill{
		ID:         sanitizeInput(req.ID),
		Name:       sanitizeInput(req.Name),
		Amount:     *req.Amount,
		DueDate:    req.DueDate,
		Recurrence: core.Recurrence(strings.ToLower(sanitizeInput(string(req.Recurrence)))),
		Status:     req.Status,
	}, nil
}

// ownerFromRequest returns the sanitized owner id, or "" for the demo ledger.
func ownerFromRequest(r *http.Request) (string, error) {
	owner := sanitizeInput(r.Header.Get(OwnerHeader))
	if len(owner) > maxOwnerLen {
		return "", fmt.Errorf("%w: owner id too long", core.ErrInvalidInput)
	}
	return owner, nil
}

// decodeJSON reads a single JSON object from the body. Value errors raised
// by the domain decoders keep their core.ErrInvalidInput identity; syntax
// problems become errBadRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			return err
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", errBadRequest, maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// sanitizeInput trims and strips control characters other than tab and
// line breaks.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
