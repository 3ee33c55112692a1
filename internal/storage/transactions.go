package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const transactionColumns = "id, owner_id, type, amount_cents, category, description, occurred_at, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx                             core.Transaction
		owner, typ                     string
		occurred, createdAt, updatedAt int64
	)
	if err := s.Scan(&tx.ID, &owner, &typ, &tx.Amount.Cents, &tx.Category, &tx.Description, &occurred, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	tx.Owner = core.OwnerID(owner)
	tx.Type = core.TxType(typ)
	tx.Date = fromMillis(occurred)
	tx.CreatedAt = fromMillis(createdAt)
	tx.UpdatedAt = fromMillis(updatedAt)
	return tx, nil
}

func (r *Repository) collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// QueryTransactions implements ledger.TransactionReader
func (r *Repository) QueryTransactions(ctx context.Context, owner core.OwnerID, f core.TransactionFilter) ([]core.Transaction, error) {
	where, args := whereTransactions(r.dialect, owner, f)
	rows, err := r.query(ctx, "SELECT "+transactionColumns+" FROM transactions"+where+" ORDER BY occurred_at ASC, id ASC", args...)
	if err != nil {
		return nil, r.storeErr("query transactions", err)
	}
	txs, err := r.collectTransactions(rows)
	if err != nil {
		return nil, r.storeErr("query transactions", err)
	}
	return txs, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	now := r.now()
	if tx.Date.IsZero() {
		tx.Date = now
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = core.NewID()
	}
	tx.CreatedAt, tx.UpdatedAt = now, now

	_, err := r.exec(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		tx.ID, string(tx.Owner), string(tx.Type), tx.Amount.Cents, tx.Category, tx.Description,
		millis(tx.Date), millis(now), millis(now))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, core.ErrConflict)
		}
		return core.Transaction{}, r.storeErr("create transaction", err)
	}
	return r.GetTransaction(ctx, tx.Owner, tx.ID)
}

func (r *Repository) GetTransaction(ctx context.Context, owner core.OwnerID, id string) (core.Transaction, error) {
	row := r.queryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE owner_id = ? AND id = ?", string(owner), id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, r.storeErr("get transaction", err)
	}
	return tx, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	res, err := r.exec(ctx,
		"UPDATE transactions SET type = ?, amount_cents = ?, category = ?, description = ?, occurred_at = ?, updated_at = ? WHERE owner_id = ? AND id = ?",
		string(tx.Type), tx.Amount.Cents, tx.Category, tx.Description, millis(tx.Date), millis(r.now()), string(tx.Owner), tx.ID)
	if err != nil {
		return core.Transaction{}, r.storeErr("update transaction", err)
	}
	if err := r.expectOne(res, "update transaction", "transaction", tx.ID); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, tx.Owner, tx.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, owner core.OwnerID, id string) error {
	res, err := r.exec(ctx, "DELETE FROM transactions WHERE owner_id = ? AND id = ?", string(owner), id)
	if err != nil {
		return r.storeErr("delete transaction", err)
	}
	return r.expectOne(res, "delete transaction", "transaction", id)
}

func (r *Repository) ListTransactions(ctx context.Context, owner core.OwnerID, q ledger.TransactionQuery) (ledger.Page[core.Transaction], error) {
	p, err := q.Pagination.Normalize()
	if err != nil {
		return ledger.Page[core.Transaction]{}, err
	}
	where, args := whereTransactions(r.dialect, owner, q.Filter)

	var total int
	if err := r.queryRow(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return ledger.Page[core.Transaction]{}, r.storeErr("count transactions", err)
	}

	sort := q.Sort
	if sort.Field == "" {
		sort = ledger.DefaultTransactionSort
	}
	rows, err := r.query(ctx,
		"SELECT "+transactionColumns+" FROM transactions"+where+orderTransactions(sort)+" LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return ledger.Page[core.Transaction]{}, r.storeErr("list transactions", err)
	}
	items, err := r.collectTransactions(rows)
	if err != nil {
		return ledger.Page[core.Transaction]{}, r.storeErr("list transactions", err)
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return ledger.Page[core.Transaction]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// expectOne turns a zero-row update or delete into ErrNotFound.
func (r *Repository) expectOne(res sql.Result, op, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return r.storeErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}
