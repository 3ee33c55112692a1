// Package worker turns ledger change events into refreshed monthly reports.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// MonthReport is what gets exported for one owner and calendar month.
type MonthReport struct {
	Owner       core.OwnerID
	Month       int
	Year        int
	Budgets     analytics.BudgetReport
	Categories  analytics.CategoryReport
	GeneratedAt time.Time
}

// ReportExporter writes a month report somewhere durable.
type ReportExporter interface {
	ExportMonth(ctx context.Context, r MonthReport) error
}

// ReportWorker recomputes the affected month whenever a ledger event arrives.
type ReportWorker struct {
	engine        *analytics.Engine
	exporter      ReportExporter
	logger        *log.Logger
	exportTimeout time.Duration
	now           func() time.Time
}

type Option func(*ReportWorker)

func WithLogger(l *log.Logger) Option {
	return func(w *ReportWorker) {
		if l != nil {
			w.logger = l.WithComponent(log.ComponentWorker)
		}
	}
}

func WithExportTimeout(d time.Duration) Option {
	return func(w *ReportWorker) {
		if d > 0 {
			w.exportTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *ReportWorker) { w.now = now }
}

// NewReportWorker falls back to logging reports when exporter is nil.
func NewReportWorker(engine *analytics.Engine, exporter ReportExporter, opts ...Option) *ReportWorker {
	w := &ReportWorker{
		engine:        engine,
		logger:        log.Discard(),
		exportTimeout: 30 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if exporter == nil {
		exporter = NewLogExporter(w.logger)
	}
	w.exporter = exporter
	return w
}

// HandleLedgerEvent is the AMQP consumer callback.
func (w *ReportWorker) HandleLedgerEvent(ctx context.Context, evt *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldOwner, evt.Owner,
		log.FieldRecordID, evt.RecordID,
		log.FieldMonth, evt.Month,
		log.FieldYear, evt.Year,
		"kind", evt.Kind,
		"action", evt.Action)

	owner, err := core.ParseOwnerID(evt.Owner)
	if err != nil {
		return fmt.Errorf("ledger event owner %q: %w", evt.Owner, err)
	}
	return w.ExportMonth(ctx, owner, evt.Month, evt.Year)
}

// ExportMonth builds the month report and hands it to the exporter.
func (w *ReportWorker) ExportMonth(ctx context.Context, owner core.OwnerID, month, year int) error {
	report, err := w.BuildMonthReport(ctx, owner, month, year)
	if err != nil {
		return err
	}

	exportCtx, cancel := context.WithTimeout(ctx, w.exportTimeout)
	defer cancel()

	start := time.Now()
	if err := w.exporter.ExportMonth(exportCtx, report); err != nil {
		w.logger.ErrorContext(ctx, "Failed to export month report",
			log.NewFields().WithOperation(log.OpExport).WithOwner(owner.String()).
				WithMonth(month, year).WithError(err).ToSlice()...)
		return fmt.Errorf("export %02d/%d report: %w", month, year, err)
	}

	w.logger.InfoContext(ctx, "Month report exported",
		log.FieldOwner, owner.String(),
		log.FieldMonth, month,
		log.FieldYear, year,
		log.FieldRows, len(report.Budgets.Categories),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// BuildMonthReport runs the budget comparison and the category breakdown for
// the month concurrently.
func (w *ReportWorker) BuildMonthReport(ctx context.Context, owner core.OwnerID, month, year int) (MonthReport, error) {
	window, err := w.engine.Resolver().Month(month, year)
	if err != nil {
		return MonthReport{}, err
	}
	startDate := window.Start.Format(time.DateOnly)
	endDate := window.End.Format(time.DateOnly)

	report := MonthReport{Owner: owner, Month: month, Year: year, GeneratedAt: w.now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := w.engine.BudgetVsActual(gctx, owner, month, year)
		if err != nil {
			return fmt.Errorf("budget vs actual: %w", err)
		}
		report.Budgets = r
		return nil
	})
	g.Go(func() error {
		r, err := w.engine.SpendingByCategory(gctx, owner, startDate, endDate)
		if err != nil {
			return fmt.Errorf("spending by category: %w", err)
		}
		report.Categories = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return MonthReport{}, err
	}
	return report, nil
}
