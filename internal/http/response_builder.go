package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

var errForbidden = errors.New("expense belongs to another user")

// messageBody is the error envelope. The client shows Message verbatim.
type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

// errorStatus maps the domain error taxonomy onto HTTP status codes and the
// message the caller may see.
func errorStatus(err error) (int, string) {
	switch {
	case core.IsValidationError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "You can only access your own expenses"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Expense not found"
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err, op, nil)
	}
	writeMessage(w, status, msg)
}
