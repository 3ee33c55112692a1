package ledger

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestPaginationNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Pagination
		want    Pagination
		wantErr bool
	}{
		{"defaults", Pagination{}, Pagination{Page: 1, Limit: DefaultLimit}, false},
		{"explicit", Pagination{Page: 3, Limit: 10}, Pagination{Page: 3, Limit: 10}, false},
		{"max limit", Pagination{Page: 1, Limit: MaxLimit}, Pagination{Page: 1, Limit: MaxLimit}, false},
		{"over max", Pagination{Page: 1, Limit: MaxLimit + 1}, Pagination{}, true},
		{"negative page", Pagination{Page: -1}, Pagination{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("Normalize() = %+v, %v; want %+v", got, err, tt.want)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	p := Paginate(items, Pagination{Page: 3, Limit: 2})
	if len(p.Items) != 1 || p.Items[0] != 5 || p.Total != 5 || p.Pages() != 3 {
		t.Fatalf("unexpected page: %+v", p)
	}
	empty := Paginate(items, Pagination{Page: 9, Limit: 2})
	if empty.Items == nil || len(empty.Items) != 0 {
		t.Fatalf("past the end must be an empty, non-nil slice: %+v", empty)
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("-amount", DefaultTransactionSort, SortDate, SortAmount)
	if err != nil || s != (Sort{Field: SortAmount, Desc: true}) {
		t.Fatalf("got %+v, %v", s, err)
	}
	s, err = ParseSort("", DefaultTransactionSort, SortDate, SortAmount)
	if err != nil || s != DefaultTransactionSort {
		t.Fatalf("empty must yield default, got %+v", s)
	}
	if _, err := ParseSort("category", DefaultTransactionSort, SortDate, SortAmount); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSortTransactionsTieBreaksByID(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []core.Transaction{{ID: "b", Date: d}, {ID: "a", Date: d}, {ID: "c", Date: d.Add(-time.Hour)}}
	Chronological(items)
	if items[0].ID != "c" || items[1].ID != "a" || items[2].ID != "b" {
		t.Fatalf("unexpected order: %v %v %v", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestSortBudgetsByPeriod(t *testing.T) {
	items := []core.Budget{
		{ID: "1", Category: "A", Month: 1, Year: 2024},
		{ID: "2", Category: "A", Month: 12, Year: 2023},
		{ID: "3", Category: "A", Month: 5, Year: 2024},
	}
	SortBudgets(items, DefaultBudgetSort)
	if items[0].ID != "3" || items[1].ID != "1" || items[2].ID != "2" {
		t.Fatalf("unexpected order: %+v", items)
	}
}
