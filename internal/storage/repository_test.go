package storage

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

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// exerciseStore runs the same behavioural checks against any backend.
func exerciseStore(t *testing.T, repo ledger.Store) {
	ctx := context.Background()
	owner := core.NewOwnerID()
	other := core.NewOwnerID()
	day := func(d int) time.Time { return time.Date(2024, 3, d, 9, 0, 0, 0, time.UTC) }

	mk := func(o core.OwnerID, typ core.TxType, cat string, cents int64, d int) core.Transaction {
		tx, err := repo.CreateTransaction(ctx, core.Transaction{Owner: o, Type: typ, Category: cat, Amount: core.Money{Cents: cents}, Date: day(d)})
		if err != nil {
			t.Fatalf("create transaction: %v", err)
		}
		return tx
	}
	food := mk(owner, core.Expense, "Food", 5000, 2)
	mk(owner, core.Expense, "Fast_Food", 700, 3)
	mk(owner, core.Income, "Salary", 300000, 1)
	mk(owner, core.Expense, "Rent", 90000, 5)
	mk(other, core.Expense, "Food", 1, 2)

	t.Run("query orders by date and scopes owner", func(t *testing.T) {
		got, err := repo.QueryTransactions(ctx, owner, core.TransactionFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 4 || got[0].Category != "Salary" || got[3].Category != "Rent" {
			t.Fatalf("unexpected order: %+v", got)
		}
	})

	t.Run("category substring is case insensitive and literal", func(t *testing.T) {
		got, _ := repo.QueryTransactions(ctx, owner, core.TransactionFilter{Category: "FOOD"})
		if len(got) != 2 {
			t.Fatalf("substring: %+v", got)
		}
		got, _ = repo.QueryTransactions(ctx, owner, core.TransactionFilter{Category: "t_f"})
		if len(got) != 1 || got[0].Category != "Fast_Food" {
			t.Fatalf("underscore must match literally: %+v", got)
		}
		got, _ = repo.QueryTransactions(ctx, owner, core.TransactionFilter{Category: "Food", ExactCategory: true, Type: core.Expense})
		if len(got) != 1 || got[0].ID != food.ID {
			t.Fatalf("exact: %+v", got)
		}
	})

	t.Run("category substring folds non-ASCII letters", func(t *testing.T) {
		intl := core.NewOwnerID()
		mk(intl, core.Expense, "Épicerie", 1200, 4)
		mk(intl, core.Expense, "ÜBUNG", 800, 4)
		mk(intl, core.Expense, "Epicerie", 300, 4)
		cases := []struct {
			in   string
			want int
		}{
			{"épicerie", 1},
			{"ÉPI", 1},
			{"übung", 1},
			{"picerie", 2},
		}
		for _, c := range cases {
			got, err := repo.QueryTransactions(ctx, intl, core.TransactionFilter{Category: c.in})
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != c.want {
				t.Errorf("category %q: got %d matches, want %d", c.in, len(got), c.want)
			}
		}
		if _, err := repo.CreateBudget(ctx, core.Budget{Owner: intl, Category: "Épicerie", MonthlyLimit: core.Money{Cents: 5000}, Month: 3, Year: 2024}); err != nil {
			t.Fatal(err)
		}
		page, err := repo.ListBudgets(ctx, intl, ledger.BudgetQuery{Category: "ÉPICERIE"})
		if err != nil || page.Total != 1 {
			t.Fatalf("budgets: %+v, %v", page, err)
		}
	})

	t.Run("range bounds are inclusive", func(t *testing.T) {
		got, _ := repo.QueryTransactions(ctx, owner, core.TransactionFilter{Range: core.Range{Start: day(2), End: day(3)}})
		if len(got) != 2 {
			t.Fatalf("range: %+v", got)
		}
	})

	t.Run("get update delete", func(t *testing.T) {
		got, err := repo.GetTransaction(ctx, owner, food.ID)
		if err != nil || got.Amount.Cents != 5000 || !got.Date.Equal(day(2)) {
			t.Fatalf("get: %+v, %v", got, err)
		}
		if _, err := repo.GetTransaction(ctx, other, food.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("other owner must not see it: %v", err)
		}
		got.Amount = core.Money{Cents: 5500}
		got.Description = "weekly shop"
		updated, err := repo.UpdateTransaction(ctx, got)
		if err != nil || updated.Amount.Cents != 5500 || updated.Description != "weekly shop" {
			t.Fatalf("update: %+v, %v", updated, err)
		}
		ghost := got
		ghost.ID = core.NewID()
		if _, err := repo.UpdateTransaction(ctx, ghost); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("update missing: %v", err)
		}
	})

	t.Run("list paginates and sorts", func(t *testing.T) {
		page, err := repo.ListTransactions(ctx, owner, ledger.TransactionQuery{
			Sort:       ledger.Sort{Field: ledger.SortAmount, Desc: true},
			Pagination: ledger.Pagination{Page: 1, Limit: 2},
		})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 4 || len(page.Items) != 2 || page.Items[0].Category != "Salary" || page.Items[1].Category != "Rent" {
			t.Fatalf("page = %+v", page)
		}
		empty, err := repo.ListTransactions(ctx, owner, ledger.TransactionQuery{Pagination: ledger.Pagination{Page: 10, Limit: 2}})
		if err != nil || empty.Items == nil || len(empty.Items) != 0 || empty.Total != 4 {
			t.Fatalf("empty page = %+v, %v", empty, err)
		}
	})

	t.Run("budgets are unique per category and month", func(t *testing.T) {
		b := core.Budget{Owner: owner, Category: "Food", MonthlyLimit: core.Money{Cents: 10000}, Month: 3, Year: 2024}
		created, err := repo.CreateBudget(ctx, b)
		if err != nil {
			t.Fatalf("create budget: %v", err)
		}
		if _, err := repo.CreateBudget(ctx, b); !errors.Is(err, core.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if _, err := repo.CreateBudget(ctx, core.Budget{Owner: other, Category: "Food", MonthlyLimit: core.Money{Cents: 1}, Month: 3, Year: 2024}); err != nil {
			t.Fatalf("other owner may reuse the slot: %v", err)
		}
		rent, err := repo.CreateBudget(ctx, core.Budget{Owner: owner, Category: "Rent", MonthlyLimit: core.Money{Cents: 90000}, Month: 3, Year: 2024})
		if err != nil {
			t.Fatal(err)
		}
		rent.Category = "Food"
		if _, err := repo.UpdateBudget(ctx, rent); !errors.Is(err, core.ErrConflict) {
			t.Fatalf("update into taken slot: %v", err)
		}

		got, err := repo.QueryBudgets(ctx, owner, 3, 2024)
		if err != nil || len(got) != 2 {
			t.Fatalf("QueryBudgets = %+v, %v", got, err)
		}

		page, err := repo.ListBudgets(ctx, owner, ledger.BudgetQuery{Category: "foo"})
		if err != nil || page.Total != 1 || page.Items[0].ID != created.ID {
			t.Fatalf("ListBudgets = %+v, %v", page, err)
		}

		if err := repo.DeleteBudget(ctx, owner, created.ID); err != nil {
			t.Fatal(err)
		}
		if err := repo.DeleteBudget(ctx, owner, created.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("second delete: %v", err)
		}
	})

	t.Run("delete transaction", func(t *testing.T) {
		if err := repo.DeleteTransaction(ctx, owner, food.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.GetTransaction(ctx, owner, food.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("deleted record still visible: %v", err)
		}
	})
}

func TestSQLiteRepository(t *testing.T) {
	exerciseStore(t, newTestRepository(t))
}

func TestSQLiteRepositoryClosedReturnsStoreError(t *testing.T) {
	repo := newTestRepository(t)
	repo.Close()
	_, err := repo.QueryTransactions(context.Background(), core.NewOwnerID(), core.TransactionFilter{})
	if !core.IsStore(err) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path, nil)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("FINTRACK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FINTRACK_TEST_DATABASE_URL not set")
	}
	repo, err := NewPostgresRepository(dsn, nil)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer repo.Close()
	exerciseStore(t, repo)
}

func TestRebind(t *testing.T) {
	q := "SELECT 1 FROM t WHERE a = ? AND b = ? LIMIT ?"
	if got := SQLite.rebind(q); got != q {
		t.Fatalf("sqlite must keep placeholders: %s", got)
	}
	if got := Postgres.rebind(q); got != "SELECT 1 FROM t WHERE a = $1 AND b = $2 LIMIT $3" {
		t.Fatalf("postgres rebind = %s", got)
	}
}

func TestLikePattern(t *testing.T) {
	cases := map[string]string{
		"Food": "%food%",
		"50%":  `%50\%%`,
		"a_b":  `%a\_b%`,
		`x\y`:  `%x\\y%`,
	}
	for in, want := range cases {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
