package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Config holds the server settings that are not collaborators.
type Config struct {
	Addr           string
	RateLimitRPM   int
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	engine   *analytics.Engine
	ledger   *services.LedgerService
	tokens   *auth.Tokens
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *log.Logger

	shutdownOnce sync.Once
}

// pinger is implemented by stores that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func NewServer(cfg Config, engine *analytics.Engine, ledger *services.LedgerService, tokens *auth.Tokens) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	detector, err := security.NewDetector(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine:   engine,
		ledger:   ledger,
		tokens:   tokens,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		logger:   logger.WithComponent(log.ComponentHTTP),
	}
	s.tracer = trace.NewMiddleware(s.logger, detector.ExtractClientIP)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/analytics/spending-by-category", s.handleSpendingByCategory)
	api.HandleFunc("GET /api/analytics/monthly-trends", s.handleMonthlyTrends)
	api.HandleFunc("GET /api/analytics/budget-vs-actual", s.handleBudgetVsActual)
	api.HandleFunc("GET /api/analytics/dashboard", s.handleDashboard)
	api.HandleFunc("GET /api/budgets/progress", s.handleBudgetProgress)
	api.HandleFunc("GET /api/transactions/summary", s.handleTransactionSummary)

	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	api.HandleFunc("GET /api/budgets/{id}", s.handleGetBudget)
	api.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	api.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Route not found").Write(w)
	})

	var protected http.Handler = api
	protected = tokens.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		FromError(err).Write(w)
	})(protected)
	protected = s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later").Write(w)
	})(protected)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", protected)

	var root http.Handler = mux
	root = detector.Middleware(s.logger)(root)
	root = s.tracer.Middleware(root)
	root = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(root)
	root = log.Middleware(s.logger)(root)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops the limiter cleanup, drains the HTTP server and logs the
// request counters collected since start.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		traffic := s.tracer.GetMetrics()
		limited := s.limiter.GetMetrics()
		detected := s.detector.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server stopped",
			"total_requests", traffic.TotalRequests,
			"avg_response_us", traffic.AverageResponseTime,
			"rate_limited", limited.TotalHits,
			"suspicious_requests", detected.SuspiciousRequests,
			"invalid_ip_attempts", detected.InvalidIPAttempts)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.ledger.Store().(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.NewFields().
				WithErrorType(log.ErrorTypeDatabase).WithError(err).ToSlice()...)
			ErrorResponse(http.StatusServiceUnavailable, "Store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}

// requestOwner returns the authenticated owner or writes a 401.
func requestOwner(w http.ResponseWriter, r *http.Request) (core.OwnerID, bool) {
	id, err := auth.OwnerFromContext(r.Context())
	if err != nil {
		FromError(err).Write(w)
		return "", false
	}
	return id, true
}
