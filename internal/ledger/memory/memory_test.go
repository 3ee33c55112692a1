package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 10, 0, 0, 0, time.UTC) }

func TestQueryTransactionsScopesAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	alice, bob := core.NewOwnerID(), core.NewOwnerID()

	for _, tx := range []core.Transaction{
		{Owner: alice, Type: core.Expense, Amount: core.Money{Cents: 300}, Category: "Food", Date: day(3)},
		{Owner: alice, Type: core.Expense, Amount: core.Money{Cents: 100}, Category: "Fuel", Date: day(1)},
		{Owner: alice, Type: core.Income, Amount: core.Money{Cents: 900}, Category: "Salary", Date: day(2)},
		{Owner: bob, Type: core.Expense, Amount: core.Money{Cents: 999}, Category: "Food", Date: day(1)},
	} {
		if _, err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.QueryTransactions(ctx, alice, core.TransactionFilter{Type: core.Expense})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].Category != "Fuel" || got[1].Category != "Food" {
		t.Fatalf("unexpected result: %+v", got)
	}

	got, _ = s.QueryTransactions(ctx, alice, core.TransactionFilter{Category: "fu"})
	if len(got) != 1 || got[0].Category != "Fuel" {
		t.Fatalf("substring filter: %+v", got)
	}
}

func TestTransactionCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := core.NewOwnerID()

	tx, err := s.CreateTransaction(ctx, core.Transaction{Owner: owner, Type: core.Income, Amount: core.Money{Cents: 5000}, Category: "Salary"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.ID == "" || tx.Date.IsZero() {
		t.Fatalf("id and default date expected: %+v", tx)
	}

	if _, err := s.GetTransaction(ctx, core.NewOwnerID(), tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign owner must not see record, got %v", err)
	}

	tx.Amount = core.Money{Cents: 6000}
	updated, err := s.UpdateTransaction(ctx, tx)
	if err != nil || updated.Amount.Cents != 6000 || !updated.CreatedAt.Equal(tx.CreatedAt) {
		t.Fatalf("update: %+v, %v", updated, err)
	}

	if err := s.DeleteTransaction(ctx, owner, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, owner, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestListTransactionsPaginates(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := core.NewOwnerID()
	for i := 1; i <= 5; i++ {
		s.CreateTransaction(ctx, core.Transaction{Owner: owner, Type: core.Expense, Amount: core.Money{Cents: int64(i * 100)}, Category: "X", Date: day(i)})
	}

	page, err := s.ListTransactions(ctx, owner, ledger.TransactionQuery{Pagination: ledger.Pagination{Page: 2, Limit: 2}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || page.Pages() != 3 || len(page.Items) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	// newest first: days 5,4 | 3,2 | 1
	if !page.Items[0].Date.Equal(day(3)) {
		t.Fatalf("page 2 should start at day 3, got %v", page.Items[0].Date)
	}

	if _, err := s.ListTransactions(ctx, owner, ledger.TransactionQuery{Pagination: ledger.Pagination{Limit: 101}}); !core.IsValidation(err) {
		t.Fatalf("limit over max must fail validation, got %v", err)
	}
}

func TestBudgetUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := core.NewOwnerID()
	b := core.Budget{Owner: owner, Category: "Food", MonthlyLimit: core.Money{Cents: 10000}, Month: 3, Year: 2024}

	first, err := s.CreateBudget(ctx, b)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateBudget(ctx, b); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	other, _ := s.CreateBudget(ctx, core.Budget{Owner: owner, Category: "Rent", MonthlyLimit: core.Money{Cents: 1}, Month: 3, Year: 2024})
	other.Category = "Food"
	if _, err := s.UpdateBudget(ctx, other); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("update into existing slot must conflict, got %v", err)
	}

	got, err := s.QueryBudgets(ctx, owner, 3, 2024)
	if err != nil || len(got) != 2 || got[0].ID != first.ID {
		t.Fatalf("QueryBudgets = %+v, %v", got, err)
	}
}

func TestClosedStoreReturnsStoreError(t *testing.T) {
	s := New()
	s.Close()
	_, err := s.QueryTransactions(context.Background(), core.NewOwnerID(), core.TransactionFilter{})
	if !core.IsStore(err) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil || s == nil {
		t.Fatalf("missing seed must yield empty store: %v", err)
	}

	owner := core.NewOwnerID()
	seed := `{
  "transactions": [
    {"owner": "` + string(owner) + `", "type": "expense", "amount": 12.5, "category": "Food", "date": "2024-03-02"},
    {"owner": "` + string(owner) + `", "type": "income", "amount": 100, "category": "Salary", "date": "2024-03-01T09:00:00Z"}
  ],
  "budgets": [
    {"owner": "` + string(owner) + `", "category": "Food", "monthlyLimit": 200, "month": 3, "year": 2024}
  ]
}`
	path := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	txs, _ := s.QueryTransactions(context.Background(), owner, core.TransactionFilter{})
	if len(txs) != 2 || txs[1].Amount.Cents != 1250 {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
	budgets, _ := s.QueryBudgets(context.Background(), owner, 3, 2024)
	if len(budgets) != 1 || budgets[0].MonthlyLimit.Cents != 20000 {
		t.Fatalf("unexpected budgets: %+v", budgets)
	}

	if err := os.WriteFile(path, []byte(`{"transactions":[{"type":"loan"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatal("expected error for invalid type")
	}
}
