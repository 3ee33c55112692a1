package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseTxType(t *testing.T) {
	for _, in := range []string{"income", "EXPENSE", " expense "} {
		if _, err := ParseTxType(in); err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
	}
	if _, err := ParseTxType("transfer"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestParseOwnerID(t *testing.T) {
	id := NewOwnerID()
	got, err := ParseOwnerID(strings.ToUpper(string(id)))
	if err != nil || got != id {
		t.Fatalf("ParseOwnerID = %q, %v; want %q", got, err, id)
	}
	if _, err := ParseOwnerID("not-a-uuid"); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
	if !OwnerID("  ").IsZero() {
		t.Fatal("blank owner must be zero")
	}
}

func TestTransactionValidate(t *testing.T) {
	owner := NewOwnerID()
	base := func() Transaction {
		return Transaction{
			Owner:    owner,
			Type:     Expense,
			Amount:   Money{Cents: 100},
			Category: "  Food ",
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	good := base()
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Category != "Food" {
		t.Fatalf("category not trimmed: %q", good.Category)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		field  string
	}{
		{"bad type", func(tx *Transaction) { tx.Type = "gift" }, "type"},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -5} }, "amount"},
		{"blank category", func(tx *Transaction) { tx.Category = "   " }, "category"},
		{"long category", func(tx *Transaction) { tx.Category = strings.Repeat("x", 51) }, "category"},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("d", 201) }, "description"},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base()
			tt.mutate(&tx)
			err := tx.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}

	noOwner := base()
	noOwner.Owner = ""
	if err := noOwner.Validate(); !IsAuthorization(err) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{Owner: NewOwnerID(), Category: "Rent", MonthlyLimit: Money{Cents: 50000}, Month: 12, Year: 2024}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		month, year int
		want        error
	}{
		{0, 2024, ErrMonthOutOfRange},
		{13, 2024, ErrMonthOutOfRange},
		{6, 1999, ErrYearOutOfRange},
		{6, 2101, ErrYearOutOfRange},
	}
	for _, c := range cases {
		bad := b
		bad.Month, bad.Year = c.month, c.year
		if err := bad.Validate(); !errors.Is(err, c.want) {
			t.Errorf("(%d,%d): got %v, want %v", c.month, c.year, err, c.want)
		}
	}
}

func TestTransactionFilterMatches(t *testing.T) {
	d := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	tx := Transaction{Type: Expense, Category: "Groceries", Date: d}

	cases := []struct {
		name string
		f    TransactionFilter
		want bool
	}{
		{"empty filter", TransactionFilter{}, true},
		{"type match", TransactionFilter{Type: Expense}, true},
		{"type mismatch", TransactionFilter{Type: Income}, false},
		{"substring any case", TransactionFilter{Category: "CERI"}, true},
		{"exact requires equality", TransactionFilter{Category: "groceries", ExactCategory: true}, false},
		{"exact match", TransactionFilter{Category: "Groceries", ExactCategory: true}, true},
		{"inside range", TransactionFilter{Range: Range{Start: d.Add(-time.Hour), End: d.Add(time.Hour)}}, true},
		{"start bound inclusive", TransactionFilter{Range: Range{Start: d}}, true},
		{"end bound inclusive", TransactionFilter{Range: Range{End: d}}, true},
		{"before range", TransactionFilter{Range: Range{Start: d.Add(time.Nanosecond)}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.f.Matches(tx); got != c.want {
				t.Fatalf("Matches = %v, want %v", got, c.want)
			}
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("disk on fire")
	err := error(&StoreError{Op: "query transactions", Err: cause})
	if !IsStore(err) || !errors.Is(err, cause) {
		t.Fatalf("StoreError must unwrap to cause: %v", err)
	}
	if IsValidation(err) || IsAuthorization(err) {
		t.Fatal("StoreError misclassified")
	}
	ve := NewValidationError("startDate", ErrInvalidDate)
	if ve.Error() != "startDate: invalid date" {
		t.Fatalf("ValidationError.Error() = %q", ve.Error())
	}
	if !errors.Is(&AuthorizationError{}, ErrUnauthorized) {
		t.Fatal("AuthorizationError must unwrap to ErrUnauthorized")
	}
}
