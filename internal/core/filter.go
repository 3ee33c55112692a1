package core

import (
	"strings"
	"time"
)

// Range is an inclusive time window. A zero bound is open.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

func (r Range) IsOpen() bool { return r.Start.IsZero() && r.End.IsZero() }

// TransactionFilter selects transactions of a single owner.
// Category is a case-insensitive substring unless ExactCategory is set.
type TransactionFilter struct {
	Type          TxType
	Category      string
	ExactCategory bool
	Range         Range
}

// Matches applies the filter to one transaction. Owner is checked by the caller.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" {
		if f.ExactCategory {
			if tx.Category != f.Category {
				return false
			}
		} else if !strings.Contains(strings.ToLower(tx.Category), strings.ToLower(f.Category)) {
			return false
		}
	}
	return f.Range.Contains(tx.Date)
}
