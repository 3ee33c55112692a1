package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	MaxCategoryLen    = 50
	MaxDescriptionLen = 200
	MinYear           = 2000
	MaxYear           = 2100
)

type (
	// TxType is the direction of a transaction.
	TxType string

	// OwnerID identifies the user who owns ledger records.
	OwnerID string

	Transaction struct {
		ID          string
		Owner       OwnerID
		Type        TxType
		Amount      Money
		Category    string
		Description string
		Date        time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Budget is a spending cap for one category in one calendar month.
	Budget struct {
		ID           string
		Owner        OwnerID
		Category     string
		MonthlyLimit Money
		Month        int // 1-12
		Year         int
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}
)

// ParseTxType accepts "income" or "expense" in any case.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// NewOwnerID returns a fresh random owner id.
func NewOwnerID() OwnerID {
	return OwnerID(uuid.NewString())
}

// ParseOwnerID validates s and returns it in canonical form.
func ParseOwnerID(s string) (OwnerID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidOwner
	}
	return OwnerID(id.String()), nil
}

func (o OwnerID) IsZero() bool { return strings.TrimSpace(string(o)) == "" }

func (o OwnerID) String() string { return string(o) }

// NewID returns a new record id.
func NewID() string {
	return uuid.NewString()
}

// ValidateID checks that a record id from a URL is well formed.
func ValidateID(s string) error {
	if _, err := uuid.Parse(s); err != nil {
		return NewValidationError("id", ErrInvalidRecordID)
	}
	return nil
}

// NormalizeCategory trims surrounding whitespace and enforces the length bounds.
func NormalizeCategory(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError("category", ErrEmptyCategory)
	}
	if utf8.RuneCountInString(s) > MaxCategoryLen {
		return "", NewValidationError("category", ErrCategoryTooLong)
	}
	return s, nil
}

// ValidateMonth checks a month/year pair against the supported calendar.
func ValidateMonth(month, year int) error {
	if month < 1 || month > 12 {
		return NewValidationError("month", ErrMonthOutOfRange)
	}
	if year < MinYear || year > MaxYear {
		return NewValidationError("year", ErrYearOutOfRange)
	}
	return nil
}

// Validate normalizes the category and description in place and checks every field.
func (t *Transaction) Validate() error {
	if t.Owner.IsZero() {
		return &AuthorizationError{Reason: "missing owner"}
	}
	if !t.Type.Valid() {
		return NewValidationError("type", ErrInvalidType)
	}
	if err := t.Amount.Validate(); err != nil {
		return NewValidationError("amount", err)
	}
	cat, err := NormalizeCategory(t.Category)
	if err != nil {
		return err
	}
	t.Category = cat
	t.Description = strings.TrimSpace(t.Description)
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
		return NewValidationError("description", ErrDescriptionTooLong)
	}
	if t.Date.IsZero() {
		return NewValidationError("date", ErrInvalidDate)
	}
	return nil
}

func (b *Budget) Validate() error {
	if b.Owner.IsZero() {
		return &AuthorizationError{Reason: "missing owner"}
	}
	cat, err := NormalizeCategory(b.Category)
	if err != nil {
		return err
	}
	b.Category = cat
	if err := b.MonthlyLimit.Validate(); err != nil {
		return NewValidationError("monthlyLimit", err)
	}
	return ValidateMonth(b.Month, b.Year)
}
