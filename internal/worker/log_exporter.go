package worker

import (
	"context"

	"fintrack/internal/log"
)

// LogExporter writes report totals to the log. Used when Google Sheets is not configured.
type LogExporter struct {
	logger *log.Logger
}

func NewLogExporter(logger *log.Logger) *LogExporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &LogExporter{logger: logger.WithComponent(log.ComponentWorker)}
}

func (e *LogExporter) ExportMonth(ctx context.Context, r MonthReport) error {
	e.logger.InfoContext(ctx, "Month report",
		log.FieldOwner, r.Owner.String(),
		log.FieldMonth, r.Month,
		log.FieldYear, r.Year,
		"budgeted", r.Budgets.Totals.TotalBudgeted.StringFixed(2),
		"actual", r.Budgets.Totals.TotalActual.StringFixed(2),
		"spending", r.Categories.TotalSpending.StringFixed(2),
		"categories", len(r.Categories.Categories))
	for _, c := range r.Budgets.Categories {
		e.logger.DebugContext(ctx, "Budget line",
			log.FieldCategory, c.Category,
			"budgeted", c.Budgeted.StringFixed(2),
			"actual", c.Actual.StringFixed(2),
			"status", string(c.Status))
	}
	return nil
}
