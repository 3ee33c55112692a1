// Package services orchestrates ledger writes and the events they emit.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, evt *amqp.LedgerEvent) error
}

// LedgerService validates and stores transactions and budgets, then publishes a
// change event. Publishing is best effort: a stored record is never rolled back
// because the broker is unavailable.
type LedgerService struct {
	store     ledger.Store
	publisher EventPublisher
	logger    *log.Logger
	loc       *time.Location
}

type Option func(*LedgerService)

// WithLocation sets the zone used to derive an event's calendar month.
func WithLocation(loc *time.Location) Option {
	return func(s *LedgerService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

func NewLedgerService(store ledger.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  store,
		logger: log.Discard(),
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for read paths.
func (s *LedgerService) Store() ledger.Store { return s.store }

func (s *LedgerService) CreateTransaction(ctx context.Context, owner core.OwnerID, tx core.Transaction) (core.Transaction, error) {
	tx.Owner = owner
	tx.ID = ""
	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().WithOperation(log.OpCreate).WithOwner(owner.String()).
			WithTransaction(created.ID, string(created.Type), created.Category, created.Amount.Cents).ToSlice()...)
	s.publishTransaction(ctx, created, amqp.ActionCreated)
	return created, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, owner core.OwnerID, id string) (core.Transaction, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Transaction{}, err
	}
	return s.store.GetTransaction(ctx, owner, id)
}

// UpdateTransaction replaces a transaction. When the date moves to another
// month both months are announced.
func (s *LedgerService) UpdateTransaction(ctx context.Context, owner core.OwnerID, id string, tx core.Transaction) (core.Transaction, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Transaction{}, err
	}
	before, err := s.store.GetTransaction(ctx, owner, id)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID, tx.Owner = id, owner
	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().WithOperation(log.OpUpdate).WithOwner(owner.String()).
			WithTransaction(updated.ID, string(updated.Type), updated.Category, updated.Amount.Cents).ToSlice()...)
	s.publishTransaction(ctx, updated, amqp.ActionUpdated)
	if !s.sameMonth(before.Date, updated.Date) {
		s.publishTransaction(ctx, before, amqp.ActionUpdated)
	}
	return updated, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, owner core.OwnerID, id string) error {
	if err := core.ValidateID(id); err != nil {
		return err
	}
	existing, err := s.store.GetTransaction(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, owner, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete, log.FieldOwner, owner.String(), log.FieldRecordID, id)
	s.publishTransaction(ctx, existing, amqp.ActionDeleted)
	return nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, owner core.OwnerID, q ledger.TransactionQuery) (ledger.Page[core.Transaction], error) {
	return s.store.ListTransactions(ctx, owner, q)
}

func (s *LedgerService) CreateBudget(ctx context.Context, owner core.OwnerID, b core.Budget) (core.Budget, error) {
	b.Owner = owner
	b.ID = ""
	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	s.logger.InfoContext(ctx, "Budget created",
		log.NewFields().WithOperation(log.OpCreate).WithOwner(owner.String()).WithMonth(created.Month, created.Year).ToSlice()...)
	s.publishBudget(ctx, created, amqp.ActionCreated)
	return created, nil
}

func (s *LedgerService) GetBudget(ctx context.Context, owner core.OwnerID, id string) (core.Budget, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Budget{}, err
	}
	return s.store.GetBudget(ctx, owner, id)
}

func (s *LedgerService) UpdateBudget(ctx context.Context, owner core.OwnerID, id string, b core.Budget) (core.Budget, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Budget{}, err
	}
	before, err := s.store.GetBudget(ctx, owner, id)
	if err != nil {
		return core.Budget{}, err
	}
	b.ID, b.Owner = id, owner
	updated, err := s.store.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	s.logger.InfoContext(ctx, "Budget updated",
		log.NewFields().WithOperation(log.OpUpdate).WithOwner(owner.String()).WithMonth(updated.Month, updated.Year).ToSlice()...)
	s.publishBudget(ctx, updated, amqp.ActionUpdated)
	if before.Month != updated.Month || before.Year != updated.Year {
		s.publishBudget(ctx, before, amqp.ActionUpdated)
	}
	return updated, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, owner core.OwnerID, id string) error {
	if err := core.ValidateID(id); err != nil {
		return err
	}
	existing, err := s.store.GetBudget(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBudget(ctx, owner, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Budget deleted",
		log.FieldOperation, log.OpDelete, log.FieldOwner, owner.String(), log.FieldRecordID, id)
	s.publishBudget(ctx, existing, amqp.ActionDeleted)
	return nil
}

func (s *LedgerService) ListBudgets(ctx context.Context, owner core.OwnerID, q ledger.BudgetQuery) (ledger.Page[core.Budget], error) {
	return s.store.ListBudgets(ctx, owner, q)
}

func (s *LedgerService) sameMonth(a, b time.Time) bool {
	ay, am, _ := a.In(s.loc).Date()
	by, bm, _ := b.In(s.loc).Date()
	return ay == by && am == bm
}

func (s *LedgerService) publishTransaction(ctx context.Context, tx core.Transaction, action string) {
	y, m, _ := tx.Date.In(s.loc).Date()
	s.publish(ctx, amqp.NewLedgerEvent(tx.Owner.String(), amqp.KindTransaction, action, tx.ID, int(m), y))
}

func (s *LedgerService) publishBudget(ctx context.Context, b core.Budget, action string) {
	s.publish(ctx, amqp.NewLedgerEvent(b.Owner.String(), amqp.KindBudget, action, b.ID, b.Month, b.Year))
}

func (s *LedgerService) publish(ctx context.Context, evt *amqp.LedgerEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping ledger event", log.FieldRecordID, evt.RecordID)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, evt); err != nil {
		// Don't fail the request, the record is already stored.
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.NewFields().WithOperation(log.OpPublish).WithError(err).WithOwner(evt.Owner).
				WithMonth(evt.Month, evt.Year).ToSlice()...)
	}
}

// Close releases the store and, when it owns one, the publisher.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
