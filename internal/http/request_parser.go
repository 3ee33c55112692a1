// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const maxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts month and year from the query. Absent, non-numeric
// or zero values fall back to now; range checks are left to the engine.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}
	if y := atoiOrZero(query.Get("year")); y != 0 {
		params.Year = y
	}
	if m := atoiOrZero(query.Get("month")); m != 0 {
		params.Month = m
	}
	return params
}

// atoiOrZero reads the leading integer of s, so "13abc" is 13 and "7.5" is 7.
// Anything without leading digits is 0.
func atoiOrZero(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// ParsePagination clamps page to at least 1 and limit to 1..MaxLimit, defaulting
// unparsable values.
func ParsePagination(query url.Values) ledger.Pagination {
	page := atoiOrZero(query.Get("page"))
	if page < 1 {
		page = 1
	}
	limit := atoiOrZero(query.Get("limit"))
	if limit < 1 {
		limit = ledger.DefaultLimit
	}
	return ledger.Pagination{Page: page, Limit: min(limit, ledger.MaxLimit)}
}

type boundsParser interface {
	Bounds(startDate, endDate string) (core.Range, error)
}

// ParseTransactionQuery reads type, category, startDate, endDate, sort and
// pagination. An unknown type is ignored like an absent one.
func ParseTransactionQuery(query url.Values, resolver boundsParser) (ledger.TransactionQuery, error) {
	q := ledger.TransactionQuery{Pagination: ParsePagination(query)}

	if typ, err := core.ParseTxType(query.Get("type")); err == nil {
		q.Filter.Type = typ
	}
	q.Filter.Category = strings.TrimSpace(query.Get("category"))

	rng, err := resolver.Bounds(query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		return q, err
	}
	q.Filter.Range = rng

	q.Sort = ledger.DefaultTransactionSort
	if query.Get("sort") == "amount" {
		q.Sort = ledger.Sort{Field: ledger.SortAmount, Desc: true}
	}
	return q, nil
}

// ParseBudgetQuery reads category, month, year, sort and pagination. Out of
// range month or year values are ignored.
func ParseBudgetQuery(query url.Values) ledger.BudgetQuery {
	q := ledger.BudgetQuery{
		Category:   strings.TrimSpace(query.Get("category")),
		Sort:       ledger.DefaultBudgetSort,
		Pagination: ParsePagination(query),
	}
	if m := atoiOrZero(query.Get("month")); m >= 1 && m <= 12 {
		q.Month = m
	}
	if y := atoiOrZero(query.Get("year")); y >= core.MinYear && y <= core.MaxYear {
		q.Year = y
	}
	if query.Get("sort") == "monthlyLimit" {
		q.Sort = ledger.Sort{Field: ledger.SortMonthlyLimit, Desc: true}
	}
	return q
}

// DecodeJSON reads a single JSON object into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return core.NewValidationError(typeErr.Field, fmt.Errorf("must be a %s", typeErr.Type))
		}
		return core.NewValidationError("body", fmt.Errorf("malformed JSON: %w", err))
	}
	return nil
}

type transactionPayload struct {
	Type        string           `json:"type"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
}

// toTransaction converts the payload. An empty date means now.
func (p transactionPayload) toTransaction(loc *time.Location, now time.Time) (core.Transaction, error) {
	typ, err := core.ParseTxType(p.Type)
	if err != nil {
		return core.Transaction{}, core.NewValidationError("type", err)
	}
	amount, err := parseAmount("amount", p.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date := now
	if strings.TrimSpace(p.Date) != "" {
		date, err = parseDate(p.Date, loc)
		if err != nil {
			return core.Transaction{}, err
		}
	}
	return core.Transaction{
		Type:        typ,
		Amount:      amount,
		Category:    p.Category,
		Description: p.Description,
		Date:        date,
	}, nil
}

type budgetPayload struct {
	Category     string           `json:"category"`
	MonthlyLimit *decimal.Decimal `json:"monthlyLimit"`
	Month        int              `json:"month"`
	Year         int              `json:"year"`
}

func (p budgetPayload) toBudget() (core.Budget, error) {
	if p.MonthlyLimit == nil {
		return core.Budget{}, core.NewValidationError("monthlyLimit", core.ErrBudgetLimitRequired)
	}
	limit, err := parseAmount("monthlyLimit", p.MonthlyLimit)
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		Category:     p.Category,
		MonthlyLimit: limit,
		Month:        p.Month,
		Year:         p.Year,
	}, nil
}

func parseAmount(field string, d *decimal.Decimal) (core.Money, error) {
	if d == nil {
		return core.Money{}, core.NewValidationError(field, core.ErrInvalidAmount)
	}
	if d.IsNegative() {
		return core.Money{}, core.NewValidationError(field, core.ErrInvalidAmount)
	}
	m := core.MoneyFromDecimal(*d)
	if err := m.Validate(); err != nil {
		return core.Money{}, core.NewValidationError(field, err)
	}
	return m, nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", time.DateOnly}

// parseDate accepts RFC 3339 timestamps and zone-less local forms.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.NewValidationError("date", core.ErrInvalidDate)
}
