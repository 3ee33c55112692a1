package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

type reportFlags struct {
	Owner    string
	Start    string
	End      string
	Month    int
	Year     int
	Type     string
	Category string
	Timeout  time.Duration
	Indent   bool
}

// reportRunner opens the configured store for one report and closes it afterwards.
type reportRunner struct {
	logger *log.Logger
	flags  *reportFlags
}

func newReportCmd(logger *log.Logger) *cobra.Command {
	flags := &reportFlags{}
	runner := &reportRunner{logger: logger, flags: flags}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print an analytics report as JSON",
	}
	cmd.PersistentFlags().StringVar(&flags.Owner, "owner", "", "Owner id (UUID)")
	cmd.PersistentFlags().DurationVar(&flags.Timeout, "timeout", 30*time.Second, "Report timeout")
	cmd.PersistentFlags().BoolVar(&flags.Indent, "indent", true, "Indent JSON output")
	_ = cmd.MarkPersistentFlagRequired("owner")

	rangeFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&flags.Start, "start", "", "Start date (YYYY-MM-DD or RFC 3339)")
		c.Flags().StringVar(&flags.End, "end", "", "End date (YYYY-MM-DD or RFC 3339)")
	}
	monthFlags := func(c *cobra.Command) {
		c.Flags().IntVar(&flags.Month, "month", 0, "Month 1-12 (default current)")
		c.Flags().IntVar(&flags.Year, "year", 0, "Year (default current)")
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "Expense totals per category",
		RunE: runner.run(func(ctx context.Context, e *analytics.Engine, owner core.OwnerID) (any, error) {
			return e.SpendingByCategory(ctx, owner, flags.Start, flags.End)
		}),
	}
	rangeFlags(categories)

	trends := &cobra.Command{
		Use:   "trends",
		Short: "Income, expense and balance per month",
		RunE: runner.run(func(ctx context.Context, e *analytics.Engine, owner core.OwnerID) (any, error) {
			return e.MonthlyTrends(ctx, owner, flags.Start, flags.End)
		}),
	}
	rangeFlags(trends)

	budgets := &cobra.Command{
		Use:   "budgets",
		Short: "Budget vs actual spending for a month",
		RunE: runner.run(func(ctx context.Context, e *analytics.Engine, owner core.OwnerID) (any, error) {
			month, year := flags.period(e)
			return e.BudgetVsActual(ctx, owner, month, year)
		}),
	}
	monthFlags(budgets)

	progress := &cobra.Command{
		Use:   "progress",
		Short: "Remaining budget per category for a month",
		RunE: runner.run(func(ctx context.Context, e *analytics.Engine, owner core.OwnerID) (any, error) {
			month, year := flags.period(e)
			return e.BudgetProgress(ctx, owner, month, year)
		}),
	}
	monthFlags(progress)

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Income and expense totals over the filtered transactions",
		RunE: runner.run(func(ctx context.Context, e *analytics.Engine, owner core.OwnerID) (any, error) {
			return e.TransactionSummary(ctx, owner, analytics.SummaryQuery{
				Type:      flags.Type,
				Category:  flags.Category,
				StartDate: flags.Start,
				EndDate:   flags.End,
			})
		}),
	}
	rangeFlags(summary)
	summary.Flags().StringVar(&flags.Type, "type", "", "income or expense")
	summary.Flags().StringVar(&flags.Category, "category", "", "Category substring")

	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Month summary, breakdown, trends and budgets in one document",
		RunE: runner.run(func(ctx context.Context, e *analytics.Engine, owner core.OwnerID) (any, error) {
			month, year := flags.period(e)
			return e.Dashboard(ctx, owner, month, year)
		}),
	}
	monthFlags(dashboard)

	cmd.AddCommand(categories, trends, budgets, progress, summary, dashboard)
	return cmd
}

// period fills unset month or year from the engine clock.
func (f *reportFlags) period(e *analytics.Engine) (int, int) {
	now := e.Resolver().Now()
	month, year := f.Month, f.Year
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	return month, year
}

type reportFunc func(ctx context.Context, e *analytics.Engine, owner core.OwnerID) (any, error)

func (r *reportRunner) run(report reportFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		owner, err := core.ParseOwnerID(r.flags.Owner)
		if err != nil {
			return err
		}

		cfg := config.Load()
		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return err
		}
		// Reports never write, so no events are announced.
		backendCfg.AMQPURL = ""

		ctx, cancel := context.WithTimeout(cmd.Context(), r.flags.Timeout)
		defer cancel()

		result, err := backend.NewFactory(r.logger).CreateBackend(ctx, backendCfg)
		if err != nil {
			return fmt.Errorf("open %s backend: %w", backendCfg.Type, err)
		}
		defer func() {
			if err := result.Cleanup(); err != nil {
				r.logger.Warn("Backend cleanup failed", log.FieldError, err.Error())
			}
		}()

		engine := analytics.New(result.Store, result.Store,
			analytics.WithLocation(backendCfg.Location),
			analytics.WithLogger(r.logger))

		out, err := report(ctx, engine, owner)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out, r.flags.Indent)
	}
}

func writeJSON(w io.Writer, v any, indent bool) error {
	decimal.MarshalJSONWithoutQuotes = true
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
