package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"spendlens/internal/core"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	filter, err := ParseExpenseFilter(r.URL.Query(), s.location())
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}

	expenses, err := s.deps.Expenses.ListExpenses(r.Context(), user.ID, filter)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	NewJSONResponse().Payload(expenses).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	in, err := ParseExpenseInput(w, r, s.location())
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}

	expense, err := s.deps.Expenses.CreateExpense(r.Context(), user.ID, in)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Payload(expense).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	expense, err := s.deps.Expenses.GetExpense(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Payload(expense).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	in, err := ParseExpenseInput(w, r, s.location())
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}

	expense, err := s.deps.Expenses.UpdateExpense(r.Context(), user.ID, chi.URLParam(r, "id"), in)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Payload(expense).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := s.deps.Expenses.DeleteExpense(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Message("Expense deleted").Write(w)
}
