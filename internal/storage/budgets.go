package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const budgetColumns = "id, owner_id, category, monthly_limit_cents, month, year, created_at, updated_at"

func scanBudget(s rowScanner) (core.Budget, error) {
	var (
		b                    core.Budget
		owner                string
		createdAt, updatedAt int64
	)
	if err := s.Scan(&b.ID, &owner, &b.Category, &b.MonthlyLimit.Cents, &b.Month, &b.Year, &createdAt, &updatedAt); err != nil {
		return core.Budget{}, err
	}
	b.Owner = core.OwnerID(owner)
	b.CreatedAt = fromMillis(createdAt)
	b.UpdatedAt = fromMillis(updatedAt)
	return b, nil
}

func (r *Repository) collectBudgets(rows *sql.Rows) ([]core.Budget, error) {
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// QueryBudgets implements ledger.BudgetReader
func (r *Repository) QueryBudgets(ctx context.Context, owner core.OwnerID, month, year int) ([]core.Budget, error) {
	rows, err := r.query(ctx,
		"SELECT "+budgetColumns+" FROM budgets WHERE owner_id = ? AND month = ? AND year = ? ORDER BY created_at ASC, id ASC",
		string(owner), month, year)
	if err != nil {
		return nil, r.storeErr("query budgets", err)
	}
	budgets, err := r.collectBudgets(rows)
	if err != nil {
		return nil, r.storeErr("query budgets", err)
	}
	return budgets, nil
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.ID == "" {
		b.ID = core.NewID()
	}
	now := millis(r.now())
	_, err := r.exec(ctx,
		"INSERT INTO budgets ("+budgetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		b.ID, string(b.Owner), b.Category, b.MonthlyLimit.Cents, b.Month, b.Year, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, fmt.Errorf("budget %s %02d/%d: %w", b.Category, b.Month, b.Year, core.ErrConflict)
		}
		return core.Budget{}, r.storeErr("create budget", err)
	}
	return r.GetBudget(ctx, b.Owner, b.ID)
}

func (r *Repository) GetBudget(ctx context.Context, owner core.OwnerID, id string) (core.Budget, error) {
	row := r.queryRow(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE owner_id = ? AND id = ?", string(owner), id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, r.storeErr("get budget", err)
	}
	return b, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	res, err := r.exec(ctx,
		"UPDATE budgets SET category = ?, monthly_limit_cents = ?, month = ?, year = ?, updated_at = ? WHERE owner_id = ? AND id = ?",
		b.Category, b.MonthlyLimit.Cents, b.Month, b.Year, millis(r.now()), string(b.Owner), b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, fmt.Errorf("budget %s %02d/%d: %w", b.Category, b.Month, b.Year, core.ErrConflict)
		}
		return core.Budget{}, r.storeErr("update budget", err)
	}
	if err := r.expectOne(res, "update budget", "budget", b.ID); err != nil {
		return core.Budget{}, err
	}
	return r.GetBudget(ctx, b.Owner, b.ID)
}

func (r *Repository) DeleteBudget(ctx context.Context, owner core.OwnerID, id string) error {
	res, err := r.exec(ctx, "DELETE FROM budgets WHERE owner_id = ? AND id = ?", string(owner), id)
	if err != nil {
		return r.storeErr("delete budget", err)
	}
	return r.expectOne(res, "delete budget", "budget", id)
}

func (r *Repository) ListBudgets(ctx context.Context, owner core.OwnerID, q ledger.BudgetQuery) (ledger.Page[core.Budget], error) {
	p, err := q.Pagination.Normalize()
	if err != nil {
		return ledger.Page[core.Budget]{}, err
	}

	conds := []string{"owner_id = ?"}
	args := []any{string(owner)}
	if q.Category != "" {
		conds = append(conds, r.dialect.categoryLike())
		args = append(args, likePattern(q.Category))
	}
	if q.Month != 0 {
		conds = append(conds, "month = ?")
		args = append(args, q.Month)
	}
	if q.Year != 0 {
		conds = append(conds, "year = ?")
		args = append(args, q.Year)
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := r.queryRow(ctx, "SELECT COUNT(*) FROM budgets"+where, args...).Scan(&total); err != nil {
		return ledger.Page[core.Budget]{}, r.storeErr("count budgets", err)
	}

	sort := q.Sort
	if sort.Field == "" {
		sort = ledger.DefaultBudgetSort
	}
	rows, err := r.query(ctx,
		"SELECT "+budgetColumns+" FROM budgets"+where+orderBudgets(sort)+" LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return ledger.Page[core.Budget]{}, r.storeErr("list budgets", err)
	}
	items, err := r.collectBudgets(rows)
	if err != nil {
		return ledger.Page[core.Budget]{}, r.storeErr("list budgets", err)
	}
	if items == nil {
		items = []core.Budget{}
	}
	return ledger.Page[core.Budget]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}
