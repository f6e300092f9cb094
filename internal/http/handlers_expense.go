package http

import (
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// handleListExpenses serves GET /expenses. The userId parameter is optional
// but must name the caller when present.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	uid, filter, err := core.ParseFilterQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if uid != 0 && uid != user.UserID {
		s.writeError(w, r, log.OpList, errForbidden)
		return
	}
	list, err := s.expenses.List(r.Context(), user.UserID, filter)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if list == nil {
		list = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req core.ExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	if err := ownRequest(&req, userFrom(r.Context())); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	e, err := s.expenses.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	e, err := s.expenses.Get(r.Context(), userFrom(r.Context()).UserID, id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req core.ExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := ownRequest(&req, userFrom(r.Context())); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	e, err := s.expenses.Update(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.expenses.Delete(r.Context(), userFrom(r.Context()).UserID, id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
