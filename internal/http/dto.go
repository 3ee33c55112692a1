package http

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func init() {
	// Amounts go out as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type transactionView struct {
	ID          string          `json:"id"`
	Type        core.TxType     `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func newTransactionView(tx core.Transaction, loc *time.Location) transactionView {
	return transactionView{
		ID:          tx.ID,
		Type:        tx.Type,
		Amount:      tx.Amount.Decimal(),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.In(loc),
		CreatedAt:   tx.CreatedAt.In(loc),
		UpdatedAt:   tx.UpdatedAt.In(loc),
	}
}

type budgetView struct {
	ID           string          `json:"id"`
	Category     string          `json:"category"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func newBudgetView(b core.Budget, loc *time.Location) budgetView {
	return budgetView{
		ID:           b.ID,
		Category:     b.Category,
		MonthlyLimit: b.MonthlyLimit.Decimal(),
		Month:        b.Month,
		Year:         b.Year,
		CreatedAt:    b.CreatedAt.In(loc),
		UpdatedAt:    b.UpdatedAt.In(loc),
	}
}

// mapPage converts a store page into views plus envelope pagination.
func mapPage[T, V any](p ledger.Page[T], view func(T) V) ([]V, Pagination) {
	out := make([]V, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, view(item))
	}
	return out, Pagination{Total: p.Total, Page: p.Page, Pages: p.Pages(), Limit: p.Limit}
}
