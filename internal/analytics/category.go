package analytics

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type CategoryTotal struct {
	Category         string          `json:"category"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	TransactionCount int             `json:"transactionCount"`
	Percentage       decimal.Decimal `json:"percentage"`
}

type CategoryReport struct {
	Categories    []CategoryTotal `json:"categories"`
	TotalSpending decimal.Decimal `json:"totalSpending"`
	Period        Period          `json:"period"`
}

// SpendingByCategory breaks the owner's expenses in the window down by category,
// largest total first.
func (e *Engine) SpendingByCategory(ctx context.Context, owner core.OwnerID, startDate, endDate string) (CategoryReport, error) {
	if err := requireOwner(owner); err != nil {
		return CategoryReport{}, err
	}
	window, err := e.resolver.Window(startDate, endDate)
	if err != nil {
		return CategoryReport{}, err
	}
	return e.spendingByCategory(ctx, owner, window)
}

func (e *Engine) spendingByCategory(ctx context.Context, owner core.OwnerID, window core.Range) (CategoryReport, error) {
	txs, err := e.txs.QueryTransactions(ctx, owner, core.TransactionFilter{Type: core.Expense, Range: window})
	if err != nil {
		return CategoryReport{}, err
	}

	type group struct {
		category string
		total    decimal.Decimal
		count    int
	}
	// groups keeps first-seen order; index maps category to its slot.
	var groups []group
	index := make(map[string]int)
	spending := decimal.Zero
	for _, tx := range txs {
		i, ok := index[tx.Category]
		if !ok {
			i = len(groups)
			index[tx.Category] = i
			groups = append(groups, group{category: tx.Category, total: decimal.Zero})
		}
		amount := tx.Amount.Decimal()
		groups[i].total = groups[i].total.Add(amount)
		groups[i].count++
		spending = spending.Add(amount)
	}

	slices.SortStableFunc(groups, func(a, b group) int {
		return b.total.Cmp(a.total)
	})

	report := CategoryReport{
		Categories:    make([]CategoryTotal, 0, len(groups)),
		TotalSpending: round2(spending),
		Period:        periodOf(window),
	}
	for _, g := range groups {
		report.Categories = append(report.Categories, CategoryTotal{
			Category:         g.category,
			TotalAmount:      round2(g.total),
			TransactionCount: g.count,
			Percentage:       percentOf(g.total, spending),
		})
	}

	e.logReport(ctx, log.OpCategoryBreakdown, owner, len(report.Categories), log.NewFields().WithPeriod(window.Start, window.End))
	return report, nil
}
