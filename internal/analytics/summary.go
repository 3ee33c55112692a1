package analytics

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// SummaryQuery is the optional filter of a summary. Empty fields do not filter.
type SummaryQuery struct {
	Type      string
	Category  string
	StartDate string
	EndDate   string
}

type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	IncomeCount  int             `json:"incomeCount"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	ExpenseCount int             `json:"expenseCount"`
	Balance      decimal.Decimal `json:"balance"`
}

// TransactionSummary totals income and expense over the filtered transactions.
// Unlike the breakdown reports it applies no default window.
func (e *Engine) TransactionSummary(ctx context.Context, owner core.OwnerID, q SummaryQuery) (Summary, error) {
	if err := requireOwner(owner); err != nil {
		return Summary{}, err
	}
	filter, err := e.summaryFilter(q)
	if err != nil {
		return Summary{}, err
	}
	return e.summarize(ctx, owner, filter)
}

func (e *Engine) summaryFilter(q SummaryQuery) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	if strings.TrimSpace(q.Type) != "" {
		typ, err := core.ParseTxType(q.Type)
		if err != nil {
			return f, core.NewValidationError("type", err)
		}
		f.Type = typ
	}
	f.Category = strings.TrimSpace(q.Category)
	rng, err := e.resolver.Bounds(q.StartDate, q.EndDate)
	if err != nil {
		return f, err
	}
	f.Range = rng
	return f, nil
}

func (e *Engine) summarize(ctx context.Context, owner core.OwnerID, f core.TransactionFilter) (Summary, error) {
	txs, err := e.txs.QueryTransactions(ctx, owner, f)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{TotalIncome: decimal.Zero, TotalExpense: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount.Decimal())
			s.IncomeCount++
		case core.Expense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount.Decimal())
			s.ExpenseCount++
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	e.logReport(ctx, log.OpSummary, owner, len(txs), log.NewFields().WithPeriod(f.Range.Start, f.Range.End))
	return s, nil
}
