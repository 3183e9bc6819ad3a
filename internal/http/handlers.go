package http

import (
	"net/http"

	"billease/internal/core"
	"billease/internal/log"
	"billease/internal/store"
)

type modeResponse struct {
	Mode          store.Mode `json:"mode"`
	EffectiveMode store.Mode `json:"effectiveMode"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	snap, err := s.ledger.Snapshot(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}

	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}

	today := s.now()
	expense, err := req.expense(core.NewDate(today.Year(), int(today.Month()), today.Day()))
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.ledger.AddExpense(r.Context(), owner, expense)
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}

	sl := log.NewStructuredLogger(log.FromContext(r.Context()).WithComponent(log.ComponentHTTP))
	sl.LogRecordCreated(r.Context(), "expense", created.ID, owner, created.Amount.Cents)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}

	var req billRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}

	bill, err := req.bill()
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.ledger.AddBill(r.Context(), owner, bill)
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}

	sl := log.NewStructuredLogger(log.FromContext(r.Context()).WithComponent(log.ComponentHTTP))
	sl.LogRecordCreated(r.Context(), "bill", created.ID, owner, created.Amount.Cents)
	writeJSON(w, http.StatusCreated, created)
}

// handleMarkBillPaid answers 204 without echoing a status: the local store
// treats an unknown id as a no-op, so success does not prove a bill changed.
// Clients re-read the snapshot or bill list to see the result.
func (s *Server) handleMarkBillPaid(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		s.writeServiceError(w, r, log.OpMarkPaid, err)
		return
	}

	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		s.writeServiceError(w, r, log.OpMarkPaid, core.ErrEmptyID)
		return
	}
	if err := s.ledger.MarkBillPaid(r.Context(), owner, id); err != nil {
		s.writeServiceError(w, r, log.OpMarkPaid, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	dash, err := s.ledger.Dashboard(r.Context(), owner, s.now())
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	rep, err := s.ledger.Report(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleBills lists bills with their schedule. An optional ?at=YYYY-MM-DD
// evaluates due dates as of that day instead of today.
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}

	now := s.now()
	if at := r.URL.Query().Get("at"); at != "" {
		d, err := core.ParseDate(at)
		if err != nil {
			s.writeServiceError(w, r, log.OpRead, err)
			return
		}
		now = d.Time
	}

	bills, err := s.ledger.Bills(r.Context(), owner, now)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	mode := s.ledger.Mode()
	writeJSON(w, http.StatusOK, modeResponse{Mode: mode, EffectiveMode: store.EffectiveMode(mode, owner)})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":  core.Categories(),
		"recurrences": []core.Recurrence{core.NoRecurrence, core.Monthly, core.Yearly},
	})
}
