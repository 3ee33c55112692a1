package ledger

import (
	"cmp"
	"slices"
	"strings"

	"fintrack/internal/core"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page  int
	Limit int
}

// Normalize fills defaults and rejects out-of-range values.
func (p Pagination) Normalize() (Pagination, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Page < 1 {
		return p, core.NewValidationError("page", core.ErrInvalidPage)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return p, core.NewValidationError("limit", core.ErrInvalidPage)
	}
	return p, nil
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

// Page is one slice of a listing plus the total match count.
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}

// Pages returns the number of pages needed for Total items.
func (p Page[T]) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// Paginate cuts one page out of an already sorted slice.
func Paginate[T any](items []T, p Pagination) Page[T] {
	out := Page[T]{Total: len(items), Page: p.Page, Limit: p.Limit}
	start := p.Offset()
	if start >= len(items) {
		out.Items = []T{}
		return out
	}
	end := min(start+p.Limit, len(items))
	out.Items = append([]T(nil), items[start:end]...)
	return out
}

// Sort is a listing order: a field name with an optional leading "-" for descending.
type Sort struct {
	Field string
	Desc  bool
}

const (
	SortDate         = "date"
	SortAmount       = "amount"
	SortMonthlyLimit = "monthlyLimit"
	SortPeriod       = "period"
)

// ParseSort validates raw against the allowed fields. Empty yields def.
func ParseSort(raw string, def Sort, allowed ...string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	s := Sort{Field: raw}
	if strings.HasPrefix(raw, "-") {
		s = Sort{Field: raw[1:], Desc: true}
	}
	if !slices.Contains(allowed, s.Field) {
		return def, core.NewValidationError("sort", core.ErrInvalidSort)
	}
	return s, nil
}

// TransactionQuery drives the paginated transaction listing.
type TransactionQuery struct {
	Filter core.TransactionFilter
	Sort   Sort
	Pagination
}

// DefaultTransactionSort lists newest first.
var DefaultTransactionSort = Sort{Field: SortDate, Desc: true}

// BudgetQuery drives the paginated budget listing. Zero Month or Year means any.
type BudgetQuery struct {
	Category string
	Month    int
	Year     int
	Sort     Sort
	Pagination
}

// DefaultBudgetSort lists the latest period first.
var DefaultBudgetSort = Sort{Field: SortPeriod, Desc: true}

// SortTransactions orders items in place by s, breaking ties by id.
func SortTransactions(items []core.Transaction, s Sort) {
	slices.SortStableFunc(items, func(a, b core.Transaction) int {
		var c int
		switch s.Field {
		case SortAmount:
			c = cmp.Compare(a.Amount.Cents, b.Amount.Cents)
		default:
			c = a.Date.Compare(b.Date)
		}
		if s.Desc {
			c = -c
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		return c
	})
}

// SortBudgets orders items in place by s, breaking ties by category then id.
func SortBudgets(items []core.Budget, s Sort) {
	slices.SortStableFunc(items, func(a, b core.Budget) int {
		var c int
		switch s.Field {
		case SortMonthlyLimit:
			c = cmp.Compare(a.MonthlyLimit.Cents, b.MonthlyLimit.Cents)
		default:
			c = cmp.Or(cmp.Compare(a.Year, b.Year), cmp.Compare(a.Month, b.Month))
		}
		if s.Desc {
			c = -c
		}
		return cmp.Or(c, strings.Compare(a.Category, b.Category), strings.Compare(a.ID, b.ID))
	})
}

// Chronological orders transactions the way readers must return them: date, then id.
func Chronological(items []core.Transaction) {
	SortTransactions(items, Sort{Field: SortDate})
}
