// Package sheets lays out month reports as spreadsheet tabs.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/worker"
)

// Sheet titles are limited to 100 characters; the owner part is shortened.
const ownerTagLen = 8

var (
	budgetHeader   = []any{"Category", "Budgeted", "Actual", "Difference", "Used %", "Status", "Transactions"}
	categoryHeader = []any{"Category", "Spent", "Transactions", "Share %"}
)

// Exporter writes each month report to its own tab.
type Exporter struct {
	writer ValuesWriter
	prefix string
}

var _ worker.ReportExporter = (*Exporter)(nil)

func NewExporter(w ValuesWriter, prefix string) *Exporter {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "Budget"
	}
	return &Exporter{writer: w, prefix: prefix}
}

func (e *Exporter) ExportMonth(ctx context.Context, r worker.MonthReport) error {
	title := SheetTitle(e.prefix, r.Owner.String(), r.Month, r.Year)
	if err := e.writer.EnsureSheet(ctx, title); err != nil {
		return fmt.Errorf("ensure sheet %q: %w", title, err)
	}
	if err := e.writer.ReplaceValues(ctx, title, Rows(r)); err != nil {
		return fmt.Errorf("write sheet %q: %w", title, err)
	}
	return nil
}

// SheetTitle is "<prefix> YYYY-MM <owner tag>", e.g. "Budget 2024-03 1f0c9a2b".
func SheetTitle(prefix, owner string, month, year int) string {
	tag := strings.ReplaceAll(owner, "-", "")
	if len(tag) > ownerTagLen {
		tag = tag[:ownerTagLen]
	}
	return fmt.Sprintf("%s %04d-%02d %s", prefix, year, month, tag)
}

// Rows lays out the report: a header block, the budget comparison with a
// totals line, then the category breakdown with its total.
func Rows(r worker.MonthReport) [][]any {
	rows := [][]any{
		{"Owner", r.Owner.String()},
		{"Period", fmt.Sprintf("%04d-%02d", r.Year, r.Month)},
		{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		budgetHeader,
	}
	for _, c := range r.Budgets.Categories {
		rows = append(rows, []any{
			c.Category,
			c.Budgeted.StringFixed(2),
			c.Actual.StringFixed(2),
			c.Difference.StringFixed(2),
			c.Percentage.StringFixed(2),
			string(c.Status),
			c.TransactionCount,
		})
	}
	t := r.Budgets.Totals
	rows = append(rows,
		[]any{"Total", t.TotalBudgeted.StringFixed(2), t.TotalActual.StringFixed(2), t.TotalDifference.StringFixed(2)},
		[]any{},
		categoryHeader,
	)
	for _, c := range r.Categories.Categories {
		rows = append(rows, []any{c.Category, c.TotalAmount.StringFixed(2), c.TransactionCount, c.Percentage.StringFixed(2)})
	}
	rows = append(rows, []any{"Total", r.Categories.TotalSpending.StringFixed(2)})
	return rows
}
