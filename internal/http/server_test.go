package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/services"
)

const testSecret = "test-secret-that-is-at-least-32-bytes"

var testNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

type fixture struct {
	srv    *Server
	store  *memory.Store
	tokens *auth.Tokens
	owner  core.OwnerID
	token  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	engine := analytics.New(store, store,
		analytics.WithLocation(time.UTC),
		analytics.WithClock(func() time.Time { return testNow }))
	svc := services.NewLedgerService(store, services.WithLocation(time.UTC))
	tokens, err := auth.NewTokens(testSecret, "fintrack", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	srv, err := NewServer(Config{Addr: ":0", RateLimitRPM: 1000}, engine, svc, tokens)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.limiter.Stop)

	f := &fixture{srv: srv, store: store, tokens: tokens}
	f.owner, f.token = f.newOwner(t)
	return f
}

func (f *fixture) newOwner(t *testing.T) (core.OwnerID, string) {
	t.Helper()
	owner := core.NewOwnerID()
	token, err := f.tokens.Issue(owner)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return owner, token
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst any) envelopeBody {
	t.Helper()
	body := decodeEnvelope(t, rr)
	if dst != nil {
		if err := json.Unmarshal(body.Data, dst); err != nil {
			t.Fatalf("decode data %s: %v", body.Data, err)
		}
	}
	return body
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := f.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodGet, "/api/transactions", tt.token, "")
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rr.Code)
			}
			if body := decodeEnvelope(t, rr); body.Success {
				t.Error("success should be false")
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: f.token})
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("cookie auth status = %d, want 200", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/api/transactions", f.token,
		`{"type":"expense","amount":42.5,"category":" Food ","description":"lunch","date":"2024-03-10T12:30:00Z"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rr.Code, rr.Body.String())
	}
	var created transactionView
	body := decodeData(t, rr, &created)
	if body.Message != "Transaction created successfully" {
		t.Errorf("message = %q", body.Message)
	}
	if created.ID == "" || created.Category != "Food" || !created.Amount.Equal(decimal.RequireFromString("42.5")) {
		t.Fatalf("created = %+v", created)
	}

	rr = f.do(t, http.MethodGet, "/api/transactions/"+created.ID, f.token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	rr = f.do(t, http.MethodPut, "/api/transactions/"+created.ID, f.token,
		`{"type":"expense","amount":50,"category":"Food","date":"2024-03-11"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d body = %s", rr.Code, rr.Body.String())
	}
	var updated transactionView
	decodeData(t, rr, &updated)
	if !updated.Amount.Equal(decimal.NewFromInt(50)) || updated.Date.Day() != 11 {
		t.Errorf("updated = %+v", updated)
	}

	rr = f.do(t, http.MethodGet, "/api/transactions?category=foo", f.token, "")
	var items []transactionView
	body = decodeData(t, rr, &items)
	if len(items) != 1 || body.Pagination == nil || body.Pagination.Total != 1 || body.Pagination.Pages != 1 {
		t.Errorf("list = %d items, pagination %+v", len(items), body.Pagination)
	}

	rr = f.do(t, http.MethodDelete, "/api/transactions/"+created.ID, f.token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/api/transactions/"+created.ID, f.token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rr.Code)
	}
	if body := decodeEnvelope(t, rr); body.Message != "Transaction not found" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestTransactionErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"malformed id", http.MethodGet, "/api/transactions/42", "", http.StatusBadRequest, ""},
		{"unknown id", http.MethodDelete, "/api/transactions/" + core.NewID(), "", http.StatusNotFound, ""},
		{"negative amount", http.MethodPost, "/api/transactions", `{"type":"expense","amount":-5,"category":"Food"}`, http.StatusBadRequest, "amount"},
		{"bad type", http.MethodPost, "/api/transactions", `{"type":"refund","amount":5,"category":"Food"}`, http.StatusBadRequest, "type"},
		{"empty category", http.MethodPost, "/api/transactions", `{"type":"expense","amount":5,"category":"  "}`, http.StatusBadRequest, "category"},
		{"long description", http.MethodPost, "/api/transactions", `{"type":"expense","amount":5,"category":"Food","description":"` + strings.Repeat("x", 201) + `"}`, http.StatusBadRequest, "description"},
		{"unknown field", http.MethodPost, "/api/transactions", `{"type":"expense","amount":5,"category":"Food","owner":"x"}`, http.StatusBadRequest, "body"},
		{"inverted range", http.MethodGet, "/api/transactions?startDate=2024-03-10&endDate=2024-03-01", "", http.StatusBadRequest, "endDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, tt.method, tt.path, f.token, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantField == "" {
				return
			}
			body := decodeEnvelope(t, rr)
			if len(body.Errors) != 1 || body.Errors[0].Field != tt.wantField {
				t.Errorf("errors = %+v, want field %q", body.Errors, tt.wantField)
			}
		})
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	f := newFixture(t)
	_, otherToken := f.newOwner(t)

	rr := f.do(t, http.MethodPost, "/api/transactions", f.token, `{"type":"income","amount":10,"category":"Gift"}`)
	var created transactionView
	decodeData(t, rr, &created)

	if rr := f.do(t, http.MethodGet, "/api/transactions/"+created.ID, otherToken, ""); rr.Code != http.StatusNotFound {
		t.Errorf("foreign get status = %d, want 404", rr.Code)
	}
	var items []transactionView
	body := decodeData(t, f.do(t, http.MethodGet, "/api/transactions", otherToken, ""), &items)
	if len(items) != 0 || body.Pagination.Total != 0 {
		t.Errorf("foreign list = %d items", len(items))
	}
}

func TestBudgetLifecycle(t *testing.T) {
	f := newFixture(t)
	payload := `{"category":"Food","monthlyLimit":500,"month":3,"year":2024}`

	rr := f.do(t, http.MethodPost, "/api/budgets", f.token, payload)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rr.Code, rr.Body.String())
	}
	var created budgetView
	decodeData(t, rr, &created)

	if rr := f.do(t, http.MethodPost, "/api/budgets", f.token, payload); rr.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/budgets", f.token, `{"category":"Rent","monthlyLimit":900,"month":13,"year":2024}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad month status = %d, want 400", rr.Code)
	}

	rr = f.do(t, http.MethodPut, "/api/budgets/"+created.ID, f.token, `{"category":"Food","monthlyLimit":650,"month":3,"year":2024}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d body = %s", rr.Code, rr.Body.String())
	}

	var items []budgetView
	decodeData(t, f.do(t, http.MethodGet, "/api/budgets?month=3&year=2024", f.token, ""), &items)
	if len(items) != 1 || !items[0].MonthlyLimit.Equal(decimal.NewFromInt(650)) {
		t.Errorf("list = %+v", items)
	}

	if rr := f.do(t, http.MethodDelete, "/api/budgets/"+created.ID, f.token, ""); rr.Code != http.StatusOK {
		t.Errorf("delete status = %d", rr.Code)
	}
	rr = f.do(t, http.MethodGet, "/api/budgets/"+created.ID, f.token, "")
	if body := decodeEnvelope(t, rr); rr.Code != http.StatusNotFound || body.Message != "Budget not found" {
		t.Errorf("get after delete = %d %q", rr.Code, body.Message)
	}
}

func seedMarch(f *fixture) {
	at := func(day int) time.Time { return time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC) }
	tx := func(typ core.TxType, cents int64, cat string, day int) core.Transaction {
		return core.Transaction{ID: core.NewID(), Owner: f.owner, Type: typ, Amount: core.Money{Cents: cents}, Category: cat, Date: at(day)}
	}
	f.store.Insert(
		[]core.Transaction{
			tx(core.Expense, 45000, "Food", 3),
			tx(core.Expense, 100000, "Rent", 1),
			tx(core.Income, 300000, "Salary", 5),
		},
		[]core.Budget{
			{ID: core.NewID(), Owner: f.owner, Category: "Food", MonthlyLimit: core.Money{Cents: 50000}, Month: 3, Year: 2024},
		},
	)
}

func TestAnalyticsRoutes(t *testing.T) {
	f := newFixture(t)
	seedMarch(f)

	t.Run("spending by category defaults to the current month", func(t *testing.T) {
		var report analytics.CategoryReport
		rr := f.do(t, http.MethodGet, "/api/analytics/spending-by-category", f.token, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		decodeData(t, rr, &report)
		if !report.TotalSpending.Equal(decimal.NewFromInt(1450)) {
			t.Errorf("TotalSpending = %s, want 1450", report.TotalSpending)
		}
		if len(report.Categories) != 2 || report.Categories[0].Category != "Rent" {
			t.Errorf("categories = %+v", report.Categories)
		}
	})

	t.Run("budget vs actual falls back to now", func(t *testing.T) {
		var report analytics.BudgetReport
		decodeData(t, f.do(t, http.MethodGet, "/api/analytics/budget-vs-actual?month=abc", f.token, ""), &report)
		if report.Month != 3 || report.Year != 2024 {
			t.Errorf("period = %d/%d, want 3/2024", report.Month, report.Year)
		}
		if len(report.Categories) != 1 || report.Categories[0].Status != analytics.StatusWarning {
			t.Errorf("categories = %+v", report.Categories)
		}
	})

	t.Run("out of range month is rejected", func(t *testing.T) {
		for _, path := range []string{
			"/api/analytics/budget-vs-actual?month=13",
			"/api/analytics/budget-vs-actual?month=13abc",
			"/api/budgets/progress?year=1999",
			"/api/analytics/dashboard?month=-1",
		} {
			if rr := f.do(t, http.MethodGet, path, f.token, ""); rr.Code != http.StatusBadRequest {
				t.Errorf("%s status = %d, want 400", path, rr.Code)
			}
		}
	})

	t.Run("progress", func(t *testing.T) {
		var report analytics.ProgressReport
		decodeData(t, f.do(t, http.MethodGet, "/api/budgets/progress?month=3&year=2024", f.token, ""), &report)
		if len(report.Budgets) != 1 || !report.Budgets[0].Remaining.Equal(decimal.NewFromInt(50)) {
			t.Errorf("budgets = %+v", report.Budgets)
		}
	})

	t.Run("summary", func(t *testing.T) {
		var summary analytics.Summary
		decodeData(t, f.do(t, http.MethodGet, "/api/transactions/summary?startDate=2024-03-01", f.token, ""), &summary)
		if !summary.Balance.Equal(decimal.NewFromInt(1550)) || summary.ExpenseCount != 2 || summary.IncomeCount != 1 {
			t.Errorf("summary = %+v", summary)
		}
	})

	t.Run("summary rejects unknown type", func(t *testing.T) {
		if rr := f.do(t, http.MethodGet, "/api/transactions/summary?type=transfer", f.token, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("trends and dashboard", func(t *testing.T) {
		for _, path := range []string{"/api/analytics/monthly-trends", "/api/analytics/dashboard"} {
			if rr := f.do(t, http.MethodGet, path, f.token, ""); rr.Code != http.StatusOK {
				t.Errorf("%s status = %d", path, rr.Code)
			}
		}
		var dash analytics.DashboardReport
		decodeData(t, f.do(t, http.MethodGet, "/api/analytics/dashboard?month=3&year=2024", f.token, ""), &dash)
		if !dash.Summary.Balance.Equal(decimal.NewFromInt(1550)) {
			t.Errorf("dashboard balance = %s", dash.Summary.Balance)
		}
	})
}

func TestUnknownAPIRoute(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/nope", f.token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if body := decodeEnvelope(t, rr); body.Success {
		t.Error("success should be false")
	}
}

func TestRateLimitedResponse(t *testing.T) {
	store := memory.New()
	engine := analytics.New(store, store, analytics.WithLocation(time.UTC))
	tokens, _ := auth.NewTokens(testSecret, "fintrack", time.Hour)
	srv, err := NewServer(Config{RateLimitRPM: 1}, engine, services.NewLedgerService(store), tokens)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.limiter.Stop)
	token, _ := tokens.Issue(core.NewOwnerID())

	var last *httptest.ResponseRecorder
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		last = httptest.NewRecorder()
		srv.Handler.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestNewServerRejectsBadProxy(t *testing.T) {
	store := memory.New()
	tokens, _ := auth.NewTokens(testSecret, "fintrack", time.Hour)
	_, err := NewServer(Config{TrustedProxies: []string{"not-a-cidr"}},
		analytics.New(store, store), services.NewLedgerService(store), tokens)
	if err == nil {
		t.Fatal("expected error for invalid proxy CIDR")
	}
}
