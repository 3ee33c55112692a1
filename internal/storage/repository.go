// Package storage persists transactions and budgets in SQLite or PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
	now     func() time.Time
}

var _ ledger.Store = (*Repository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	// WAL plus a busy timeout lets the fan-out readers share the file.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return open(SQLite, dsn, logger)
}

func NewPostgresRepository(dsn string, logger *log.Logger) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	return open(Postgres, dsn, logger)
}

func open(dialect Dialect, dsn string, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		dialect: dialect,
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &core.StoreError{Op: "ping", Err: err}
	}
	return nil
}

func (r *Repository) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.rebind(q), args...)
}

func (r *Repository) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.rebind(q), args...)
}

func (r *Repository) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.rebind(q), args...)
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// whereTransactions renders the owner scope plus filter as a WHERE clause.
func whereTransactions(d Dialect, owner core.OwnerID, f core.TransactionFilter) (string, []any) {
	conds := []string{"owner_id = ?"}
	args := []any{string(owner)}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		if f.ExactCategory {
			conds = append(conds, "category = ?")
			args = append(args, f.Category)
		} else {
			conds = append(conds, d.categoryLike())
			args = append(args, likePattern(f.Category))
		}
	}
	if !f.Range.Start.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, millis(f.Range.Start))
	}
	if !f.Range.End.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, millis(f.Range.End))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderTransactions(s ledger.Sort) string {
	col := "occurred_at"
	if s.Field == ledger.SortAmount {
		col = "amount_cents"
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)
}

func orderBudgets(s ledger.Sort) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	if s.Field == ledger.SortMonthlyLimit {
		return fmt.Sprintf(" ORDER BY monthly_limit_cents %s, category ASC, id ASC", dir)
	}
	return fmt.Sprintf(" ORDER BY year %s, month %s, category ASC, id ASC", dir, dir)
}

func (r *Repository) storeErr(op string, err error) error {
	r.logger.Error("Database operation failed", log.NewFields().
		WithOperation(op).
		WithErrorType(log.ErrorTypeDatabase).
		WithError(err).ToSlice()...)
	return &core.StoreError{Op: op, Err: err}
}
