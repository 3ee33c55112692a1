package analytics

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// DashboardReport bundles the month view. The parts are read independently and
// may not reflect exactly the same store state.
type DashboardReport struct {
	Month      int            `json:"month"`
	Year       int            `json:"year"`
	Summary    Summary        `json:"summary"`
	Categories CategoryReport `json:"spendingByCategory"`
	Trends     TrendReport    `json:"monthlyTrends"`
	Budgets    BudgetReport   `json:"budgetVsActual"`
}

// Dashboard computes the month's summary, category breakdown and budget comparison
// plus the default trend series, all at once.
func (e *Engine) Dashboard(ctx context.Context, owner core.OwnerID, month, year int) (DashboardReport, error) {
	if err := requireOwner(owner); err != nil {
		return DashboardReport{}, err
	}
	window, err := e.resolver.Month(month, year)
	if err != nil {
		return DashboardReport{}, err
	}
	trendWindow, err := e.resolver.TrendWindow("", "")
	if err != nil {
		return DashboardReport{}, err
	}

	report := DashboardReport{Month: month, Year: year}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.Summary, err = e.summarize(gctx, owner, core.TransactionFilter{Range: window})
		return err
	})
	g.Go(func() (err error) {
		report.Categories, err = e.spendingByCategory(gctx, owner, window)
		return err
	})
	g.Go(func() (err error) {
		report.Trends, err = e.monthlyTrends(gctx, owner, trendWindow)
		return err
	})
	g.Go(func() (err error) {
		report.Budgets, err = e.budgetVsActual(gctx, owner, month, year, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardReport{}, err
	}

	e.logReport(ctx, log.OpDashboard, owner, len(report.Categories.Categories), log.NewFields().WithMonth(month, year))
	return report, nil
}
