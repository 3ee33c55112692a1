package http

import (
	"net/http"

	"fintrack/internal/analytics"
	"fintrack/internal/log"
)

func (s *Server) handleSpendingByCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	report, err := s.engine.SpendingByCategory(r.Context(), owner, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, log.OpCategoryBreakdown, err)
		return
	}
	NewJSONResponse().Data(report).Write(w)
}

func (s *Server) handleMonthlyTrends(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	report, err := s.engine.MonthlyTrends(r.Context(), owner, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, log.OpMonthlyTrends, err)
		return
	}
	NewJSONResponse().Data(report).Write(w)
}

func (s *Server) handleBudgetVsActual(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.engine.Resolver().Now())
	report, err := s.engine.BudgetVsActual(r.Context(), owner, p.Month, p.Year)
	if err != nil {
		writeError(w, r, log.OpBudgetVsActual, err)
		return
	}
	NewJSONResponse().Data(report).Write(w)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.engine.Resolver().Now())
	report, err := s.engine.BudgetProgress(r.Context(), owner, p.Month, p.Year)
	if err != nil {
		writeError(w, r, log.OpBudgetProgress, err)
		return
	}
	NewJSONResponse().Data(report).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.engine.Resolver().Now())
	report, err := s.engine.Dashboard(r.Context(), owner, p.Month, p.Year)
	if err != nil {
		writeError(w, r, log.OpDashboard, err)
		return
	}
	NewJSONResponse().Data(report).Write(w)
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := requestOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	summary, err := s.engine.TransactionSummary(r.Context(), owner, analytics.SummaryQuery{
		Type:      q.Get("type"),
		Category:  q.Get("category"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	})
	if err != nil {
		writeError(w, r, log.OpSummary, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}
