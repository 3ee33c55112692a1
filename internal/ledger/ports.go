// Package ledger defines the persistence ports for transactions and budgets.
package ledger

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionReader returns the owner's transactions matching f,
	// ordered by date ascending and then id.
	TransactionReader interface {
		QueryTransactions(ctx context.Context, owner core.OwnerID, f core.TransactionFilter) ([]core.Transaction, error)
	}

	// BudgetReader returns the owner's budgets for one calendar month in stable order.
	BudgetReader interface {
		QueryBudgets(ctx context.Context, owner core.OwnerID, month, year int) ([]core.Budget, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, owner core.OwnerID, id string) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, owner core.OwnerID, id string) error
		ListTransactions(ctx context.Context, owner core.OwnerID, q TransactionQuery) (Page[core.Transaction], error)
	}

	BudgetWriter interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, owner core.OwnerID, id string) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, owner core.OwnerID, id string) error
		ListBudgets(ctx context.Context, owner core.OwnerID, q BudgetQuery) (Page[core.Budget], error)
	}

	// Store is a complete backend.
	Store interface {
		TransactionReader
		BudgetReader
		TransactionWriter
		BudgetWriter
		Close() error
	}
)
