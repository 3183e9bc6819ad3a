// Package http exposes the ledger as a small JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"billease/internal/core"
	"billease/internal/log"
	"billease/internal/report"
	"billease/internal/services"
	"billease/internal/store"
)

const readinessTimeout = 2 * time.Second

// Ledger is the service surface the handlers depend on. It is satisfied
// by *services.LedgerService.
type Ledger interface {
	Mode() store.Mode
	Snapshot(ctx context.Context, owner string) (core.Snapshot, error)
	AddExpense(ctx context.Context, owner string, e core.Expense) (core.Expense, error)
	AddBill(ctx context.Context, owner string, b core.Bill) (core.Bill, error)
	MarkBillPaid(ctx context.Context, owner, id string) error
	Dashboard(ctx context.Context, owner string, now time.Time) (services.Dashboard, error)
	Report(ctx context.Context, owner string) (services.Report, error)
	Bills(ctx context.Context, owner string, now time.Time) ([]report.BillView, error)
}

type Server struct {
	http.Server
	ledger      Ledger
	logger      *log.Logger
	rateLimiter *rateLimiter
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer wires the routes and middleware, returning a ready-to-run
// http.Server. metricsHandler may be nil.
func NewServer(addr string, ledger Ledger, metricsHandler http.Handler, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ledger:      ledger,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
		now:         time.Now,
	}

	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /api/bills", s.handleCreateBill)
	mux.HandleFunc("POST /api/bills/{id}/paid", s.handleMarkBillPaid)
	mux.HandleFunc("GET /api/bills", s.handleBills)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports", s.handleReport)
	mux.HandleFunc("GET /api/mode", s.handleMode)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.handleReady)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	var handler http.Handler = s.withSecurityHeaders(mux)
	handler = log.AccessLogMiddleware(extractClientIP)(handler)
	handler = log.RequestIDMiddleware(handler)
	handler = log.Middleware(logger)(handler)
	s.Handler = handler

	return s
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// handleReady reports whether the local path of the store answers a read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if _, err := s.ledger.Snapshot(ctx, ""); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
