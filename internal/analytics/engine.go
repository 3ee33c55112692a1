// Package analytics turns ledger transactions and budgets into reports:
// category breakdowns, monthly trends, budget comparisons and summaries.
//
// Every call reads a fresh snapshot from the stores. Nothing is cached and
// nothing is written, so callers may retry freely.
package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// Engine computes reports for one owner at a time. It is safe for concurrent use.
type Engine struct {
	txs      ledger.TransactionReader
	budgets  ledger.BudgetReader
	resolver *Resolver
	logger   *log.StructuredLogger

	loc *time.Location
	now func() time.Time
}

type Option func(*Engine)

// WithLocation sets the zone used for default windows and month bucketing.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = log.NewStructuredLogger(l.WithComponent(log.ComponentAnalytics))
		}
	}
}

func New(txs ledger.TransactionReader, budgets ledger.BudgetReader, opts ...Option) *Engine {
	e := &Engine{
		txs:     txs,
		budgets: budgets,
		loc:     time.Local,
		now:     time.Now,
		logger:  log.NewStructuredLogger(log.Discard()),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = NewResolver(e.loc, e.now)
	return e
}

// Resolver exposes the engine's date resolution so callers default months the same way.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Period is the resolved window of a report. Open bounds are omitted.
type Period struct {
	Start *time.Time `json:"startDate,omitempty"`
	End   *time.Time `json:"endDate,omitempty"`
}

func periodOf(r core.Range) Period {
	var p Period
	if r.IsOpen() {
		return p
	}
	if !r.Start.IsZero() {
		s := r.Start
		p.Start = &s
	}
	if !r.End.IsZero() {
		end := r.End
		p.End = &end
	}
	return p
}

func requireOwner(owner core.OwnerID) error {
	if owner.IsZero() {
		return &core.AuthorizationError{Reason: "no owner in request context"}
	}
	return nil
}

// round2 is the only rounding applied to monetary output: half away from zero at two places.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

var hundred = decimal.NewFromInt(100)

// percentOf returns round(part/whole*100, 2), or zero when whole is not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return round2(part.Mul(hundred).Div(whole))
}

func sumAmounts(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount.Decimal())
	}
	return total
}

func (e *Engine) logReport(ctx context.Context, op string, owner core.OwnerID, rows int, fields log.LogFields) {
	e.logger.LogReport(ctx, op, owner.String(), rows, fields)
}
