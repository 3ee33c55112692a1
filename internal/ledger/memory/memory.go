// Package memory is an in-process ledger backend used by default and in tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

var errClosed = errors.New("memory store closed")

type Store struct {
	mu      sync.RWMutex
	closed  bool
	now     func() time.Time
	txs     []core.Transaction
	budgets []core.Budget
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// Seed is the on-disk shape accepted by NewFromFile.
type Seed struct {
	Transactions []SeedTransaction `json:"transactions"`
	Budgets      []SeedBudget      `json:"budgets"`
}

type SeedTransaction struct {
	Owner       string  `json:"owner"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

type SeedBudget struct {
	Owner        string  `json:"owner"`
	Category     string  `json:"category"`
	MonthlyLimit float64 `json:"monthlyLimit"`
	Month        int     `json:"month"`
	Year         int     `json:"year"`
}

// NewFromFile loads a JSON seed. A missing path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}
	ctx := context.Background()
	for i, st := range seed.Transactions {
		tx, err := st.toTransaction()
		if err != nil {
			return nil, fmt.Errorf("seed transaction %d: %w", i, err)
		}
		if _, err := s.CreateTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("seed transaction %d: %w", i, err)
		}
	}
	for i, sb := range seed.Budgets {
		limit, err := core.MoneyFromFloat(sb.MonthlyLimit)
		if err != nil {
			return nil, fmt.Errorf("seed budget %d: %w", i, err)
		}
		b := core.Budget{Owner: core.OwnerID(sb.Owner), Category: sb.Category, MonthlyLimit: limit, Month: sb.Month, Year: sb.Year}
		if _, err := s.CreateBudget(ctx, b); err != nil {
			return nil, fmt.Errorf("seed budget %d: %w", i, err)
		}
	}
	return s, nil
}

func (st SeedTransaction) toTransaction() (core.Transaction, error) {
	typ, err := core.ParseTxType(st.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.MoneyFromFloat(st.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := time.Parse(time.RFC3339, st.Date)
	if err != nil {
		if date, err = time.ParseInLocation(time.DateOnly, st.Date, time.Local); err != nil {
			return core.Transaction{}, core.ErrInvalidDate
		}
	}
	return core.Transaction{
		Owner:       core.OwnerID(st.Owner),
		Type:        typ,
		Amount:      amount,
		Category:    st.Category,
		Description: st.Description,
		Date:        date,
	}, nil
}

func (s *Store) checkOpen(op string) error {
	if s.closed {
		return &core.StoreError{Op: op, Err: errClosed}
	}
	return nil
}

// QueryTransactions returns copies ordered by date then id.
func (s *Store) QueryTransactions(_ context.Context, owner core.OwnerID, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("query transactions"); err != nil {
		return nil, err
	}
	out := s.matching(owner, f)
	ledger.Chronological(out)
	return out, nil
}

func (s *Store) matching(owner core.OwnerID, f core.TransactionFilter) []core.Transaction {
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.Owner == owner && f.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// QueryBudgets returns the month's budgets in creation order.
func (s *Store) QueryBudgets(_ context.Context, owner core.OwnerID, month, year int) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("query budgets"); err != nil {
		return nil, err
	}
	var out []core.Budget
	for _, b := range s.budgets {
		if b.Owner == owner && b.Month == month && b.Year == year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	now := s.now()
	if tx.Date.IsZero() {
		tx.Date = now
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("create transaction"); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = core.NewID()
	}
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, owner core.OwnerID, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("get transaction"); err != nil {
		return core.Transaction{}, err
	}
	i := s.txIndex(owner, id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return s.txs[i], nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("update transaction"); err != nil {
		return core.Transaction{}, err
	}
	i := s.txIndex(tx.Owner, tx.ID)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound)
	}
	tx.CreatedAt = s.txs[i].CreatedAt
	tx.UpdatedAt = s.now()
	s.txs[i] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, owner core.OwnerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("delete transaction"); err != nil {
		return err
	}
	i := s.txIndex(owner, id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	s.txs = slices.Delete(s.txs, i, i+1)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, owner core.OwnerID, q ledger.TransactionQuery) (ledger.Page[core.Transaction], error) {
	p, err := q.Pagination.Normalize()
	if err != nil {
		return ledger.Page[core.Transaction]{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("list transactions"); err != nil {
		return ledger.Page[core.Transaction]{}, err
	}
	items := s.matching(owner, q.Filter)
	sort := q.Sort
	if sort.Field == "" {
		sort = ledger.DefaultTransactionSort
	}
	ledger.SortTransactions(items, sort)
	return ledger.Paginate(items, p), nil
}

func (s *Store) txIndex(owner core.OwnerID, id string) int {
	return slices.IndexFunc(s.txs, func(tx core.Transaction) bool {
		return tx.ID == id && tx.Owner == owner
	})
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("create budget"); err != nil {
		return core.Budget{}, err
	}
	if s.duplicate(b) {
		return core.Budget{}, fmt.Errorf("budget %s %02d/%d: %w", b.Category, b.Month, b.Year, core.ErrConflict)
	}
	if b.ID == "" {
		b.ID = core.NewID()
	}
	now := s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, owner core.OwnerID, id string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("get budget"); err != nil {
		return core.Budget{}, err
	}
	i := s.budgetIndex(owner, id)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return s.budgets[i], nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("update budget"); err != nil {
		return core.Budget{}, err
	}
	i := s.budgetIndex(b.Owner, b.ID)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("budget %s: %w", b.ID, core.ErrNotFound)
	}
	if s.duplicate(b) {
		return core.Budget{}, fmt.Errorf("budget %s %02d/%d: %w", b.Category, b.Month, b.Year, core.ErrConflict)
	}
	b.CreatedAt = s.budgets[i].CreatedAt
	b.UpdatedAt = s.now()
	s.budgets[i] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, owner core.OwnerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("delete budget"); err != nil {
		return err
	}
	i := s.budgetIndex(owner, id)
	if i < 0 {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	s.budgets = slices.Delete(s.budgets, i, i+1)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, owner core.OwnerID, q ledger.BudgetQuery) (ledger.Page[core.Budget], error) {
	p, err := q.Pagination.Normalize()
	if err != nil {
		return ledger.Page[core.Budget]{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("list budgets"); err != nil {
		return ledger.Page[core.Budget]{}, err
	}
	var items []core.Budget
	for _, b := range s.budgets {
		if b.Owner != owner {
			continue
		}
		if q.Category != "" && !strings.Contains(strings.ToLower(b.Category), strings.ToLower(q.Category)) {
			continue
		}
		if (q.Month != 0 && b.Month != q.Month) || (q.Year != 0 && b.Year != q.Year) {
			continue
		}
		items = append(items, b)
	}
	sort := q.Sort
	if sort.Field == "" {
		sort = ledger.DefaultBudgetSort
	}
	ledger.SortBudgets(items, sort)
	return ledger.Paginate(items, p), nil
}

func (s *Store) budgetIndex(owner core.OwnerID, id string) int {
	return slices.IndexFunc(s.budgets, func(b core.Budget) bool {
		return b.ID == id && b.Owner == owner
	})
}

// duplicate reports whether another budget already covers b's category and month.
func (s *Store) duplicate(b core.Budget) bool {
	return slices.ContainsFunc(s.budgets, func(o core.Budget) bool {
		return o.ID != b.ID && o.Owner == b.Owner && o.Category == b.Category && o.Month == b.Month && o.Year == b.Year
	})
}

// Close makes every later call fail with a StoreError.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Insert adds records verbatim, bypassing validation and uniqueness.
// Tests use it to stage states the API would refuse, such as duplicate budgets.
func (s *Store) Insert(txs []core.Transaction, budgets []core.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, txs...)
	s.budgets = append(s.budgets, budgets...)
}
