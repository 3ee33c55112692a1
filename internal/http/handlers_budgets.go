package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func budgetID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if err := core.ValidateID(id); err != nil {
		BadRequestError("Invalid budget ID").Write(w)
		return "", false
	}
	return id, true
}

func (s *Server) writeBudgetError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("Budget not found").Write(w)
		return
	}
	writeError(w, r, op, err)
}

func decodeBudget(r *http.Request) (core.Budget, error) {
	var payload budgetPayload
	if err := DecodeJSON(r, &payload); err != nil {
		return core.Budget{}, err
	}
	return payload.toBudget()
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	page, err := s.ledger.ListBudgets(r.Context(), owner, ParseBudgetQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	loc := s.engine.Resolver().Location()
	items, p := mapPage(page, func(b core.Budget) budgetView { return newBudgetView(b, loc) })
	NewJSONResponse().Data(items).Paginate(p).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	id, ok := budgetID(w, r)
	if !ok {
		return
	}
	b, err := s.ledger.GetBudget(r.Context(), owner, id)
	if err != nil {
		s.writeBudgetError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(newBudgetView(b, s.engine.Resolver().Location())).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	b, err := decodeBudget(r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.ledger.CreateBudget(r.Context(), owner, b)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Message("Budget created successfully").
		Data(newBudgetView(created, s.engine.Resolver().Location())).
		Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	id, ok := budgetID(w, r)
	if !ok {
		return
	}
	b, err := decodeBudget(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	updated, err := s.ledger.UpdateBudget(r.Context(), owner, id, b)
	if err != nil {
		s.writeBudgetError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().
		Message("Budget updated successfully").
		Data(newBudgetView(updated, s.engine.Resolver().Location())).
		Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	id, ok := budgetID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteBudget(r.Context(), owner, id); err != nil {
		s.writeBudgetError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Message("Budget deleted successfully").Write(w)
}
