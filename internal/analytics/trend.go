package analytics

import (
	"cmp"
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// MonthTrend is one calendar month of income and expense.
type MonthTrend struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	Balance      decimal.Decimal `json:"balance"`
	IncomeCount  int             `json:"incomeCount"`
	ExpenseCount int             `json:"expenseCount"`
}

type TrendReport struct {
	Trends []MonthTrend `json:"trends"`
	Period Period       `json:"period"`
}

type monthKey struct {
	year  int
	month int
}

type typeKey struct {
	monthKey
	typ core.TxType
}

type typeTotal struct {
	sum   decimal.Decimal
	count int
}

// MonthlyTrends returns per-month income, expense and balance in chronological order.
// Months without transactions are left out.
func (e *Engine) MonthlyTrends(ctx context.Context, owner core.OwnerID, startDate, endDate string) (TrendReport, error) {
	if err := requireOwner(owner); err != nil {
		return TrendReport{}, err
	}
	window, err := e.resolver.TrendWindow(startDate, endDate)
	if err != nil {
		return TrendReport{}, err
	}
	return e.monthlyTrends(ctx, owner, window)
}

func (e *Engine) monthlyTrends(ctx context.Context, owner core.OwnerID, window core.Range) (TrendReport, error) {
	txs, err := e.txs.QueryTransactions(ctx, owner, core.TransactionFilter{Range: window})
	if err != nil {
		return TrendReport{}, err
	}

	// Stage one: (year, month, type) buckets.
	buckets := make(map[typeKey]typeTotal)
	for _, tx := range txs {
		d := tx.Date.In(e.loc)
		k := typeKey{monthKey{d.Year(), int(d.Month())}, tx.Type}
		b, ok := buckets[k]
		if !ok {
			b.sum = decimal.Zero
		}
		b.sum = b.sum.Add(tx.Amount.Decimal())
		b.count++
		buckets[k] = b
	}

	// Stage two: pivot types into one row per month.
	rows := make(map[monthKey]*MonthTrend)
	for k, b := range buckets {
		row, ok := rows[k.monthKey]
		if !ok {
			row = &MonthTrend{Year: k.year, Month: k.month, Income: decimal.Zero, Expense: decimal.Zero}
			rows[k.monthKey] = row
		}
		switch k.typ {
		case core.Income:
			row.Income = round2(b.sum)
			row.IncomeCount = b.count
		case core.Expense:
			row.Expense = round2(b.sum)
			row.ExpenseCount = b.count
		}
	}

	report := TrendReport{Trends: make([]MonthTrend, 0, len(rows)), Period: periodOf(window)}
	for _, row := range rows {
		row.Balance = row.Income.Sub(row.Expense)
		report.Trends = append(report.Trends, *row)
	}
	slices.SortFunc(report.Trends, func(a, b MonthTrend) int {
		return cmp.Or(cmp.Compare(a.Year, b.Year), cmp.Compare(a.Month, b.Month))
	})

	e.logReport(ctx, log.OpMonthlyTrends, owner, len(report.Trends), log.NewFields().WithPeriod(window.Start, window.End))
	return report, nil
}
