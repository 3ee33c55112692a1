package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// transactionID reads the path id, answering 400 when it is malformed.
func transactionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if err := core.ValidateID(id); err != nil {
		BadRequestError("Invalid transaction ID").Write(w)
		return "", false
	}
	return id, true
}

func (s *Server) writeTransactionError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("Transaction not found").Write(w)
		return
	}
	writeError(w, r, op, err)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	q, err := ParseTransactionQuery(r.URL.Query(), s.engine.Resolver())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	page, err := s.ledger.ListTransactions(r.Context(), owner, q)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	loc := s.engine.Resolver().Location()
	items, p := mapPage(page, func(tx core.Transaction) transactionView { return newTransactionView(tx, loc) })
	NewJSONResponse().Data(items).Paginate(p).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	tx, err := s.ledger.GetTransaction(r.Context(), owner, id)
	if err != nil {
		s.writeTransactionError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(newTransactionView(tx, s.engine.Resolver().Location())).Write(w)
}

func (s *Server) decodeTransaction(r *http.Request) (core.Transaction, error) {
	var payload transactionPayload
	if err := DecodeJSON(r, &payload); err != nil {
		return core.Transaction{}, err
	}
	res := s.engine.Resolver()
	return payload.toTransaction(res.Location(), res.Now())
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	tx, err := s.decodeTransaction(r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.ledger.CreateTransaction(r.Context(), owner, tx)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Message("Transaction created successfully").
		Data(newTransactionView(created, s.engine.Resolver().Location())).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	tx, err := s.decodeTransaction(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	updated, err := s.ledger.UpdateTransaction(r.Context(), owner, id, tx)
	if err != nil {
		s.writeTransactionError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().
		Message("Transaction updated successfully").
		Data(newTransactionView(updated, s.engine.Resolver().Location())).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), owner, id); err != nil {
		s.writeTransactionError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Message("Transaction deleted successfully").Write(w)
}
