package analytics

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Status classifies how much of a budget has been spent.
type Status string

const (
	StatusGood     Status = "good"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// lookupConcurrency caps the per-category spend queries in flight for one report.
const lookupConcurrency = 8

var warningRatio = decimal.RequireFromString("0.8")

// Classify is exceeded above the limit, warning above 80% of it, good otherwise.
// Both comparisons are strict.
func Classify(actual, budgeted decimal.Decimal) Status {
	switch {
	case actual.GreaterThan(budgeted):
		return StatusExceeded
	case actual.GreaterThan(budgeted.Mul(warningRatio)):
		return StatusWarning
	default:
		return StatusGood
	}
}

type BudgetComparison struct {
	BudgetID         string          `json:"budgetId"`
	Category         string          `json:"category"`
	Budgeted         decimal.Decimal `json:"budgeted"`
	Actual           decimal.Decimal `json:"actual"`
	Difference       decimal.Decimal `json:"difference"`
	Percentage       decimal.Decimal `json:"percentage"`
	Status           Status          `json:"status"`
	TransactionCount int             `json:"transactionCount"`
}

type BudgetTotals struct {
	TotalBudgeted   decimal.Decimal `json:"totalBudgeted"`
	TotalActual     decimal.Decimal `json:"totalActual"`
	TotalDifference decimal.Decimal `json:"totalDifference"`
}

type BudgetReport struct {
	Month      int                `json:"month"`
	Year       int                `json:"year"`
	Categories []BudgetComparison `json:"categories"`
	Totals     BudgetTotals       `json:"totals"`
}

type BudgetProgressRow struct {
	BudgetID       string          `json:"budgetId"`
	Category       string          `json:"category"`
	MonthlyLimit   decimal.Decimal `json:"monthlyLimit"`
	ActualSpending decimal.Decimal `json:"actualSpending"`
	Remaining      decimal.Decimal `json:"remaining"`
	Percentage     decimal.Decimal `json:"percentage"`
	Status         Status          `json:"status"`
}

type ProgressReport struct {
	Month   int                 `json:"month"`
	Year    int                 `json:"year"`
	Budgets []BudgetProgressRow `json:"budgets"`
}

// budgetLine is one budget joined with its actual spend.
type budgetLine struct {
	budget core.Budget
	actual decimal.Decimal
	count  int
}

// BudgetVsActual compares each budget of the month with what was actually spent in its category.
func (e *Engine) BudgetVsActual(ctx context.Context, owner core.OwnerID, month, year int) (BudgetReport, error) {
	if err := requireOwner(owner); err != nil {
		return BudgetReport{}, err
	}
	window, err := e.resolver.Month(month, year)
	if err != nil {
		return BudgetReport{}, err
	}
	return e.budgetVsActual(ctx, owner, month, year, window)
}

func (e *Engine) budgetVsActual(ctx context.Context, owner core.OwnerID, month, year int, window core.Range) (BudgetReport, error) {
	lines, err := e.joinBudgets(ctx, owner, month, year, window)
	if err != nil {
		return BudgetReport{}, err
	}

	report := BudgetReport{Month: month, Year: year, Categories: make([]BudgetComparison, 0, len(lines))}
	totalBudgeted, totalActual := decimal.Zero, decimal.Zero
	for _, l := range lines {
		budgeted := l.budget.MonthlyLimit.Decimal()
		report.Categories = append(report.Categories, BudgetComparison{
			BudgetID:         l.budget.ID,
			Category:         l.budget.Category,
			Budgeted:         round2(budgeted),
			Actual:           round2(l.actual),
			Difference:       round2(l.actual.Sub(budgeted)),
			Percentage:       percentOf(l.actual, budgeted),
			Status:           Classify(l.actual, budgeted),
			TransactionCount: l.count,
		})
		totalBudgeted = totalBudgeted.Add(budgeted)
		totalActual = totalActual.Add(l.actual)
	}
	report.Totals = BudgetTotals{
		TotalBudgeted:   round2(totalBudgeted),
		TotalActual:     round2(totalActual),
		TotalDifference: round2(totalActual.Sub(totalBudgeted)),
	}

	e.logReport(ctx, log.OpBudgetVsActual, owner, len(report.Categories), log.NewFields().WithMonth(month, year))
	return report, nil
}

// BudgetProgress reports how much of each budget of the month is left.
func (e *Engine) BudgetProgress(ctx context.Context, owner core.OwnerID, month, year int) (ProgressReport, error) {
	if err := requireOwner(owner); err != nil {
		return ProgressReport{}, err
	}
	window, err := e.resolver.Month(month, year)
	if err != nil {
		return ProgressReport{}, err
	}
	lines, err := e.joinBudgets(ctx, owner, month, year, window)
	if err != nil {
		return ProgressReport{}, err
	}

	report := ProgressReport{Month: month, Year: year, Budgets: make([]BudgetProgressRow, 0, len(lines))}
	for _, l := range lines {
		limit := l.budget.MonthlyLimit.Decimal()
		report.Budgets = append(report.Budgets, BudgetProgressRow{
			BudgetID:       l.budget.ID,
			Category:       l.budget.Category,
			MonthlyLimit:   round2(limit),
			ActualSpending: round2(l.actual),
			Remaining:      round2(limit.Sub(l.actual)),
			Percentage:     percentOf(l.actual, limit),
			Status:         Classify(l.actual, limit),
		})
	}

	e.logReport(ctx, log.OpBudgetProgress, owner, len(report.Budgets), log.NewFields().WithMonth(month, year))
	return report, nil
}

// joinBudgets loads the month's budgets and looks up the expense total of each
// category concurrently. It returns only after every lookup has finished.
func (e *Engine) joinBudgets(ctx context.Context, owner core.OwnerID, month, year int, window core.Range) ([]budgetLine, error) {
	budgets, err := e.budgets.QueryBudgets(ctx, owner, month, year)
	if err != nil {
		return nil, err
	}
	budgets = mergeDuplicates(budgets)

	lines := make([]budgetLine, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, b := range budgets {
		g.Go(func() error {
			txs, err := e.txs.QueryTransactions(gctx, owner, core.TransactionFilter{
				Type:          core.Expense,
				Category:      b.Category,
				ExactCategory: true,
				Range:         window,
			})
			if err != nil {
				return err
			}
			lines[i] = budgetLine{budget: b, actual: sumAmounts(txs), count: len(txs)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

// mergeDuplicates folds budgets sharing a category into the first one, summing limits,
// so a category's spend is never counted twice.
func mergeDuplicates(budgets []core.Budget) []core.Budget {
	out := make([]core.Budget, 0, len(budgets))
	index := make(map[string]int, len(budgets))
	for _, b := range budgets {
		if i, ok := index[b.Category]; ok {
			out[i].MonthlyLimit.Cents += b.MonthlyLimit.Cents
			continue
		}
		index[b.Category] = len(out)
		out = append(out, b)
	}
	return out
}
