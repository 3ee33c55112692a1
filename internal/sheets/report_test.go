package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/worker"
)

type fakeWriter struct {
	ensured  []string
	written  map[string][][]any
	writeErr error
}

func (f *fakeWriter) EnsureSheet(_ context.Context, title string) error {
	f.ensured = append(f.ensured, title)
	return nil
}

func (f *fakeWriter) ReplaceValues(_ context.Context, title string, values [][]any) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.written == nil {
		f.written = map[string][][]any{}
	}
	f.written[title] = values
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleReport() worker.MonthReport {
	return worker.MonthReport{
		Owner: core.OwnerID("1f0c9a2b-3c4d-4e5f-8a9b-0c1d2e3f4a5b"),
		Month: 3,
		Year:  2024,
		Budgets: analytics.BudgetReport{
			Month: 3,
			Year:  2024,
			Categories: []analytics.BudgetComparison{
				{Category: "Food", Budgeted: d("500"), Actual: d("450"), Difference: d("50"), Percentage: d("90"), Status: analytics.StatusWarning, TransactionCount: 3},
			},
			Totals: analytics.BudgetTotals{TotalBudgeted: d("500"), TotalActual: d("450"), TotalDifference: d("50")},
		},
		Categories: analytics.CategoryReport{
			Categories: []analytics.CategoryTotal{
				{Category: "Rent", TotalAmount: d("1000"), TransactionCount: 1, Percentage: d("68.97")},
				{Category: "Food", TotalAmount: d("450"), TransactionCount: 3, Percentage: d("31.03")},
			},
			TotalSpending: d("1450"),
		},
		GeneratedAt: time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC),
	}
}

func TestSheetTitle(t *testing.T) {
	got := SheetTitle("Budget", "1f0c9a2b-3c4d-4e5f-8a9b-0c1d2e3f4a5b", 3, 2024)
	if want := "Budget 2024-03 1f0c9a2b"; got != want {
		t.Errorf("SheetTitle() = %q, want %q", got, want)
	}
	if got := SheetTitle("Budget", "abc", 12, 2025); got != "Budget 2025-12 abc" {
		t.Errorf("short owner: %q", got)
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sampleReport())

	// 3 header lines, blank, budget header, 1 line, total, blank, category header, 2 lines, total
	if len(rows) != 13 {
		t.Fatalf("len(rows) = %d, want 13", len(rows))
	}
	if rows[1][1] != "2024-03" || rows[2][1] != "2024-03-20T08:00:00Z" {
		t.Errorf("header rows = %v %v", rows[1], rows[2])
	}
	food := rows[5]
	if food[0] != "Food" || food[1] != "500.00" || food[2] != "450.00" || food[5] != "warning" || food[6] != 3 {
		t.Errorf("budget line = %v", food)
	}
	if total := rows[6]; total[0] != "Total" || total[3] != "50.00" {
		t.Errorf("budget total = %v", total)
	}
	if rent := rows[9]; rent[0] != "Rent" || rent[1] != "1000.00" || rent[3] != "68.97" {
		t.Errorf("category line = %v", rent)
	}
	if last := rows[len(rows)-1]; last[1] != "1450.00" {
		t.Errorf("spending total = %v", last)
	}
}

func TestExporter_ExportMonth(t *testing.T) {
	w := &fakeWriter{}
	e := NewExporter(w, "")

	if err := e.ExportMonth(context.Background(), sampleReport()); err != nil {
		t.Fatalf("ExportMonth() error = %v", err)
	}
	title := "Budget 2024-03 1f0c9a2b"
	if len(w.ensured) != 1 || w.ensured[0] != title {
		t.Errorf("ensured = %v", w.ensured)
	}
	if len(w.written[title]) == 0 {
		t.Error("nothing written")
	}

	w.writeErr = errors.New("quota")
	if err := e.ExportMonth(context.Background(), sampleReport()); !errors.Is(err, w.writeErr) {
		t.Errorf("error = %v, want wrapped quota error", err)
	}
}
