package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"billease/internal/core"
	"billease/internal/log"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: log.RequestID(r.Context())})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers with the mapped status. Client errors echo the
// error text; server errors are logged and answered generically.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		writeError(w, r, status, err.Error())
		return
	}

	sl := log.NewStructuredLogger(log.FromContext(r.Context()).WithComponent(log.ComponentHTTP))
	sl.LogError(r.Context(), "Request failed", err, operation, nil)

	msg := "internal error"
	if status == http.StatusServiceUnavailable {
		msg = "storage backend unavailable"
	}
	writeError(w, r, status, msg)
}
