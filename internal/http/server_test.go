package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"billease/internal/core"
	"billease/internal/log"
	"billease/internal/metrics"
	"billease/internal/services"
	"billease/internal/store"
	"billease/internal/store/local"
)

// unavailableStore stands in for a remote backend that cannot be reached.
type unavailableStore struct{}

func (unavailableStore) Snapshot(context.Context, string) (core.Snapshot, error) {
	return core.Snapshot{}, fmt.Errorf("dial: %w", core.ErrBackendUnavailable)
}
func (unavailableStore) AddExpense(context.Context, string, core.Expense) error {
	return fmt.Errorf("dial: %w", core.ErrBackendUnavailable)
}
func (unavailableStore) AddBill(context.Context, string, core.Bill) error {
	return fmt.Errorf("dial: %w", core.ErrBackendUnavailable)
}
func (unavailableStore) MarkBillPaid(context.Context, string, string) error {
	return core.ErrRecordNotFound
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
}

func newTestServer(t *testing.T, mode store.Mode) (*Server, *metrics.Metrics) {
	t.Helper()

	blob, err := local.NewFileBlob(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBlob: %v", err)
	}
	localStore := local.New(blob, local.DefaultKey, quietLogger().Slog())

	var remote store.Store
	if mode == store.ModeCloud {
		remote = unavailableStore{}
	}
	d, err := store.NewDispatcher(mode, localStore, remote)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	m := metrics.New()
	n := 0
	ledger := services.NewLedgerService(d, mode, services.Options{
		Metrics: m,
		Logger:  quietLogger().Slog(),
		NewID: func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		},
	})

	srv := NewServer(":0", ledger, m.Handler(), quietLogger())
	srv.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, m
}

func do(t *testing.T, srv *Server, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	rr := do(t, srv, http.MethodGet, "/api/snapshot", "", http.Header{"X-Request-Id": {"abc123"}})
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rr.Header().Get(log.RequestIDHeader); got != "abc123" {
		t.Errorf("request id = %q, want abc123", got)
	}
}

func TestEmptySnapshot(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	rr := do(t, srv, http.MethodGet, "/api/snapshot", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"expenses":[],"bills":[]}` {
		t.Fatalf("body = %s", got)
	}
}

func TestCreateExpenseAndSnapshot(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	rr := do(t, srv, http.MethodPost, "/api/expenses",
		`{"amount":12.5,"category":"Food","description":"  lunch ","date":"2024-03-10"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[core.Expense](t, rr)
	if created.ID != "gen-1" || created.Amount.Cents != 1250 || created.Category != core.Food || created.Description != "lunch" {
		t.Fatalf("created = %+v", created)
	}

	// date defaults to today
	rr = do(t, srv, http.MethodPost, "/api/expenses",
		`{"id":"e2","amount":"3","category":"transport","description":"bus"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if got := decode[core.Expense](t, rr).Date.String(); got != "2024-03-15" {
		t.Fatalf("default date = %s", got)
	}

	snap := decode[core.Snapshot](t, do(t, srv, http.MethodGet, "/api/snapshot", "", nil))
	if len(snap.Expenses) != 2 || snap.Expenses[0].ID != "e2" || snap.Expenses[1].ID != "gen-1" {
		t.Fatalf("snapshot = %+v", snap.Expenses)
	}
}

func TestCreateExpenseErrors(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"amount":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"unknown field", `{"amount":1,"category":"food","description":"x","colour":"red"}`, http.StatusBadRequest},
		{"trailing data", `{"amount":1,"category":"food","description":"x"} {}`, http.StatusBadRequest},
		{"negative amount", `{"amount":-5,"category":"food","description":"x"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"amount":1,"category":"food","description":"x","date":"15/03/2024"}`, http.StatusUnprocessableEntity},
		{"unknown category", `{"amount":1,"category":"travel","description":"x"}`, http.StatusUnprocessableEntity},
		{"blank description", `{"amount":1,"category":"food","description":"   "}`, http.StatusUnprocessableEntity},
		{"missing amount", `{"category":"food","description":"lunch","date":"2024-03-01"}`, http.StatusUnprocessableEntity},
		{"null amount", `{"amount":null,"category":"food","description":"lunch","date":"2024-03-01"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/expenses", tt.body, nil)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body)
			}
			if decode[errorResponse](t, rr).Error == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestDuplicateExpenseID(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	body := `{"id":"dup","amount":1,"category":"food","description":"x","date":"2024-03-01"}`
	if rr := do(t, srv, http.MethodPost, "/api/expenses", body, nil); rr.Code != http.StatusCreated {
		t.Fatalf("first status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/expenses", body, nil); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate status=%d", rr.Code)
	}
}

func TestBillLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	rr := do(t, srv, http.MethodPost, "/api/bills",
		`{"id":"rent","name":"Rent","amount":500,"dueDate":"2024-01-31","recurring":"Monthly"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	bill := decode[core.Bill](t, rr)
	if bill.Status != core.StatusUpcoming || bill.Recurrence != core.Monthly {
		t.Fatalf("bill = %+v", bill)
	}

	dash := decode[services.Dashboard](t, do(t, srv, http.MethodGet, "/api/dashboard", "", nil))
	if dash.UpcomingBillsTotal.Cents != 50000 || dash.UpcomingBillsCount != 1 {
		t.Fatalf("dashboard = %+v", dash)
	}

	rr = do(t, srv, http.MethodGet, "/api/bills?at=2024-02-10", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("bills status=%d", rr.Code)
	}
	var listed struct {
		Bills []struct {
			ID      string `json:"id"`
			NextDue string `json:"nextDue"`
		} `json:"bills"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Bills) != 1 || listed.Bills[0].NextDue != "2024-02-29" {
		t.Fatalf("bills = %+v", listed.Bills)
	}

	for i := 0; i < 2; i++ {
		rr = do(t, srv, http.MethodPost, "/api/bills/rent/paid", "", nil)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("mark paid #%d status=%d body=%s", i, rr.Code, rr.Body)
		}
		if rr.Body.Len() != 0 {
			t.Fatalf("mark paid #%d body=%s", i, rr.Body)
		}
	}

	dash = decode[services.Dashboard](t, do(t, srv, http.MethodGet, "/api/dashboard", "", nil))
	if dash.UpcomingBillsTotal.Cents != 0 {
		t.Fatalf("upcoming after paying = %v", dash.UpcomingBillsTotal)
	}

	// an unknown id is a silent no-op in local mode and claims no status
	rr = do(t, srv, http.MethodPost, "/api/bills/missing/paid", "", nil)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Fatalf("unknown id status=%d body=%s", rr.Code, rr.Body)
	}
	snap := decode[core.Snapshot](t, do(t, srv, http.MethodGet, "/api/snapshot", "", nil))
	if len(snap.Bills) != 1 || snap.Bills[0].ID != "rent" {
		t.Fatalf("bills after unknown id = %+v", snap.Bills)
	}
}

func TestBillCannotBeCreatedPaid(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	rr := do(t, srv, http.MethodPost, "/api/bills",
		`{"name":"Gym","amount":30,"dueDate":"2024-04-01","status":"paid"}`, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
}

func TestBillRequiresAmount(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	for _, body := range []string{
		`{"name":"rent","dueDate":"2024-03-01"}`,
		`{"name":"rent","amount":null,"dueDate":"2024-03-01"}`,
	} {
		rr := do(t, srv, http.MethodPost, "/api/bills", body, nil)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status=%d body=%s", body, rr.Code, rr.Body)
		}
	}

	// a zero amount that is present is still accepted
	rr := do(t, srv, http.MethodPost, "/api/bills", `{"name":"free trial","amount":0,"dueDate":"2024-03-01"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("zero amount status=%d body=%s", rr.Code, rr.Body)
	}

	snap := decode[core.Snapshot](t, do(t, srv, http.MethodGet, "/api/snapshot", "", nil))
	if len(snap.Bills) != 1 {
		t.Fatalf("bills = %+v", snap.Bills)
	}
}

func TestMissingAmountIsNotPersisted(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"category":"food","description":"lunch","date":"2024-03-01"}`, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	snap := decode[core.Snapshot](t, do(t, srv, http.MethodGet, "/api/snapshot", "", nil))
	if len(snap.Expenses) != 0 {
		t.Fatalf("expenses = %+v", snap.Expenses)
	}
}

func TestReport(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	for _, body := range []string{
		`{"amount":100,"category":"food","description":"a","date":"2024-03-01"}`,
		`{"amount":50,"category":"food","description":"b","date":"2024-03-02"}`,
		`{"amount":20,"category":"transport","description":"c","date":"2024-03-03"}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/expenses", body, nil); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d body=%s", rr.Code, rr.Body)
		}
	}

	rep := decode[services.Report](t, do(t, srv, http.MethodGet, "/api/reports", "", nil))
	if rep.Total.Cents != 17000 || rep.Count != 3 {
		t.Fatalf("report = %+v", rep)
	}
	if len(rep.Breakdown) != 2 || rep.Breakdown[0].Category != core.Food || rep.Breakdown[0].Amount.Cents != 15000 {
		t.Fatalf("breakdown = %+v", rep.Breakdown)
	}
}

func TestModeAndCloudRouting(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeCloud)
	owner := http.Header{OwnerHeader: {"user-1"}}

	got := decode[modeResponse](t, do(t, srv, http.MethodGet, "/api/mode", "", owner))
	if got.Mode != store.ModeCloud || got.EffectiveMode != store.ModeCloud {
		t.Fatalf("mode = %+v", got)
	}
	got = decode[modeResponse](t, do(t, srv, http.MethodGet, "/api/mode", "", nil))
	if got.EffectiveMode != store.ModeLocal {
		t.Fatalf("signed-out effective mode = %s", got.EffectiveMode)
	}

	if rr := do(t, srv, http.MethodGet, "/api/snapshot", "", owner); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("remote snapshot status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/bills/x/paid", "", owner); rr.Code != http.StatusNotFound {
		t.Fatalf("remote mark paid status=%d", rr.Code)
	}
	// signed-out callers keep working against the local store
	if rr := do(t, srv, http.MethodGet, "/api/snapshot", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("local snapshot status=%d", rr.Code)
	}
	// readiness only checks the local path
	if rr := do(t, srv, http.MethodGet, "/readyz", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", rr.Code)
	}
}

func TestOwnerTooLong(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	rr := do(t, srv, http.MethodGet, "/api/snapshot", "", http.Header{OwnerHeader: {strings.Repeat("x", maxOwnerLen+1)}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestBodyTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	big := `{"description":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rr := do(t, srv, http.MethodPost, "/api/expenses", big, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	if rr := do(t, srv, http.MethodDelete, "/api/expenses", "", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	do(t, srv, http.MethodGet, "/api/snapshot", "", nil)
	rr := do(t, srv, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`billease_store_operations_total{mode="local",operation="snapshot",result="ok"} 1`)) {
		t.Fatalf("metrics missing snapshot counter:\n%s", rr.Body)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv, _ := newTestServer(t, store.ModeLocal)

	var last int
	for i := 0; i <= rateLimitRequests; i++ {
		body := fmt.Sprintf(`{"amount":1,"category":"food","description":"x%d","date":"2024-03-01"}`, i)
		last = do(t, srv, http.MethodPost, "/api/expenses", body, nil).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("request %d status=%d, want 429", rateLimitRequests+1, last)
	}
	// reads are not limited
	if rr := do(t, srv, http.MethodGet, "/api/snapshot", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("read status=%d", rr.Code)
	}
}
